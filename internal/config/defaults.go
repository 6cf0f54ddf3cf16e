package config

import "time"

// SchemaVersion is the pipeline file format version.
const SchemaVersion = "1"

// Standard root names.
const (
	RootTmp       = "tmp"
	RootAssets    = "assets"
	RootDownloads = "downloads"
)

const (
	DefaultMetadataFile = "_config.yml"
	DefaultHistoryPath  = ".assetbuilder/history.db"
	DefaultDebounce     = 300 * time.Millisecond
)

// Default returns the pipeline for the usptostrap pattern library layout.
func Default() *Config {
	bootstrap := func(name string) string {
		return "bower_components/bootstrap-sass/assets/javascripts/bootstrap/" + name + ".js"
	}
	inputmask := func(name string) string {
		return "bower_components/jquery.inputmask/dist/inputmask/" + name + ".js"
	}

	return &Config{
		Version:  SchemaVersion,
		Metadata: DefaultMetadataFile,
		Paths: map[string]string{
			RootTmp:       ".tmp",
			RootAssets:    "generated",
			RootDownloads: "downloads",
		},
		Clean: CleanConfig{
			Targets: []string{"{paths.tmp}", "{paths.assets}", "{paths.downloads}"},
		},
		Lint: LintConfig{
			JS: LintTarget{
				Rules: ".jshintrc",
				Files: []string{"front/scripts/{,*/}*.js"},
			},
			Style: LintTarget{
				Rules: "_sass-lint.yml",
				Files: []string{"front/*.scss", "usptostrap/sass/**/*.scss"},
			},
		},
		Compile: CompileConfig{
			IncludePaths: []string{"usptostrap/sass", "bower_components"},
			Style:        "compressed",
			SourceMap:    true,
			Entries: []Mapping{
				{Cwd: "usptostrap/sass", Src: []string{"usptostrap.scss"}, Dest: "{paths.downloads}/css", Ext: ".min.css"},
				{Cwd: "front/styles", Src: []string{"pattern-library.scss"}, Dest: "{paths.assets}/styles", Ext: ".css"},
				{Cwd: "front/styles/appDemo", Src: []string{"appDemo.scss"}, Dest: "{paths.assets}/styles", Ext: ".min.css"},
			},
		},
		Prefix: PrefixConfig{
			Browsers: []string{"> 4%", "last 4 versions"},
			Files: []string{
				"{paths.assets}/styles/{,*/}*.css",
				"{paths.downloads}/css/usptostrap.min.css",
			},
		},
		Compress: CompressConfig{
			Files: []Mapping{
				{Cwd: "front/images", Src: []string{"{,*/}*.{png,gif,jpeg,jpg}"}, Dest: "{paths.assets}/images", Optional: true},
			},
		},
		Banner: BannerConfig{
			Template: "/* {name} v{version} | {repository} */\n\n",
			Files:    []string{"{paths.downloads}/css/usptostrap.min.css"},
		},
		Bundles: []BundleConfig{
			{
				Name: "pluginsjs",
				Src: []string{
					bootstrap("affix"), bootstrap("alert"), bootstrap("dropdown"), bootstrap("tooltip"),
					bootstrap("modal"), bootstrap("transition"), bootstrap("button"), bootstrap("popover"),
					bootstrap("carousel"), bootstrap("scrollspy"), bootstrap("collapse"), bootstrap("tab"),
				},
				Dest: "{paths.assets}/scripts/plugins.js",
			},
			{
				Name: "vendorjs",
				Src: []string{
					"bower_components/jquery/dist/jquery.js",
					inputmask("jquery.inputmask"),
					inputmask("jquery.inputmask.extensions"),
					inputmask("jquery.inputmask.date.extensions"),
					inputmask("jquery.inputmask.numeric.extensions"),
					inputmask("jquery.inputmask.phone.extensions"),
					inputmask("jquery.inputmask.regex.extensions"),
					"bower_components/select2/select2.js",
					"bower_components/nouislider/distribute/jquery.nouislider.all.min.js",
					"bower_components/bootstrap-timepicker/js/bootstrap-timepicker.js",
					"front/vendor/jquery-ui-1.11.1.custom/jquery-ui.js",
				},
				Dest: "{paths.assets}/scripts/vendor.js",
			},
			{Name: "mainjs", Src: []string{"front/scripts/main.js"}, Dest: "{paths.assets}/scripts/main.js"},
			{Name: "appDemojs", Src: []string{"front/scripts/appDemo.js"}, Dest: "{paths.assets}/scripts/appDemo.js"},
			{
				Name: "vendorcss",
				Src: []string{
					"front/vendor/jquery-ui-1.11.1.custom/jquery-ui.structure.css",
					"bower_components/font-awesome/css/font-awesome.css",
					"bower_components/select2/select2.css",
					"bower_components/nouislider/distribute/jquery.nouislider.min.css",
					"bower_components/nouislider/distribute/jquery.nouislider.pips.min.css",
				},
				Dest: "{paths.assets}/styles/vendor.css",
			},
			{Name: "maincss", Src: []string{"{paths.assets}/styles/pattern-library.css"}, Dest: "{paths.assets}/styles/main.css"},
		},
		Copy: CopyConfig{
			Dist: []Mapping{
				{Cwd: "front/vendor", Src: []string{"html5shiv/*.*", "matchMedia/*.*"}, Dest: "{paths.assets}/vendor", Dot: true},
				{Cwd: "usptostrap/images/icons", Src: []string{"*.svg"}, Dest: "{paths.assets}/images/icons", Dot: true},
				{Cwd: "front", Src: []string{"favicon.ico"}, Dest: "{paths.assets}", Dot: true},
				{Cwd: "{paths.assets}/styles", Src: []string{"vendor.css"}, Dest: "{paths.downloads}/vendor", Dot: true},
				{Cwd: "usptostrap", Src: []string{"**/*"}, Dest: "{paths.downloads}"},
			},
			Release: []Mapping{
				{Cwd: "{paths.tmp}/site", Src: []string{"**/*", "!**/1.x/**"}, Dest: "1.x"},
			},
		},
		Package: PackageConfig{
			Root:   "{paths.downloads}",
			Src:    []string{"**/*"},
			Dest:   "{paths.downloads}/{name}-{version}.zip",
			Format: FormatZip,
		},
		Publish: PublishConfig{
			Config:      "_config_release.yml",
			Destination: "{paths.tmp}/site",
		},
		Watch: WatchConfig{
			Rules: []WatchRule{
				{
					Name:     "js",
					Patterns: []string{"front/scripts/{,*/}*.js"},
					Tasks:    []string{"lint:js", "bundle:mainjs", "bundle:appDemojs"},
				},
				{
					Name:     "sass",
					Patterns: []string{"usptostrap/sass/**/*.scss", "front/styles/**/*.scss"},
					Tasks:    []string{"compile", "annotate", "bundle:maincss", "prefix"},
				},
			},
			Debounce: DefaultDebounce,
		},
		History: HistoryConfig{Path: DefaultHistoryPath},
		Tools: ToolsConfig{
			Sass:     "sass",
			JSHint:   "jshint",
			SassLint: "sass-lint",
			PostCSS:  "postcss",
			Optipng:  "optipng",
			Jpegtran: "jpegtran",
			Gifsicle: "gifsicle",
			Jekyll:   "jekyll",
		},
		Logging: LoggingConfig{Level: string(LogLevelInfo)},
	}
}
