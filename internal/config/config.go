package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of a packaging run.
type Config struct {
	// Product describes the upstream application and the AppDir layout.
	Product Product `yaml:"product" toml:"product"`
	// Upstream describes the version endpoint.
	Upstream Upstream `yaml:"upstream" toml:"upstream"`
	// Patches lists the configuration patches applied to the product JSON.
	Patches Patches `yaml:"patches" toml:"patches"`
	// Tool describes the packaging tool.
	Tool Tool `yaml:"tool" toml:"tool"`
	// Output describes where the artifact is searched for and moved to.
	Output Output `yaml:"output" toml:"output"`
	// Timeouts bound every network call and subprocess.
	Timeouts Timeouts `yaml:"timeouts" toml:"timeouts"`
}

// Product describes the packaged application.
type Product struct {
	// Name is the artifact prefix, e.g. "Windsurf".
	Name string `yaml:"name" toml:"name"`
	// AppDir is the extraction directory, relative to the working directory.
	AppDir string `yaml:"app_dir" toml:"app_dir"`
	// AssetsDir holds the desktop entry and the launcher script.
	AssetsDir string `yaml:"assets_dir" toml:"assets_dir"`
	// DesktopFile is the desktop entry file name inside AssetsDir.
	DesktopFile string `yaml:"desktop_file" toml:"desktop_file"`
	// Launcher is the launcher script file name inside AssetsDir.
	Launcher string `yaml:"launcher" toml:"launcher"`
	// IconSource is the icon path inside the unpacked tree.
	IconSource string `yaml:"icon_source" toml:"icon_source"`
	// IconName is the icon file name at the AppDir root.
	IconName string `yaml:"icon_name" toml:"icon_name"`
	// ProductJSON is the configuration document path inside the unpacked tree.
	ProductJSON string `yaml:"product_json" toml:"product_json"`
}

// Upstream describes the remote version endpoint.
type Upstream struct {
	// Endpoint returns JSON with the archive URL and the version.
	Endpoint string `yaml:"endpoint" toml:"endpoint"`
	// URLField is the JSON field holding the archive URL.
	URLField string `yaml:"url_field" toml:"url_field"`
	// VersionField is the JSON field holding the version string.
	VersionField string `yaml:"version_field" toml:"version_field"`
	// UserAgent is sent with every request; the endpoint rejects default clients.
	UserAgent string `yaml:"user_agent" toml:"user_agent"`
	// Accept is sent with every request.
	Accept string `yaml:"accept" toml:"accept"`
	// FallbackVersion is used when the working directory has no git tag.
	FallbackVersion string `yaml:"fallback_version" toml:"fallback_version"`
}

// PatchSource is one remote JSON patch document.
type PatchSource struct {
	// Name identifies the source in logs.
	Name string `yaml:"name" toml:"name"`
	// URL returns a JSON object merged into the product JSON.
	URL string `yaml:"url" toml:"url"`
}

// Patches lists the changes applied to the product JSON, in this order:
// remote sources, the local marketplace patch, key removals.
type Patches struct {
	// Sources are fetched and applied in list order.
	Sources []PatchSource `yaml:"sources" toml:"sources"`
	// Marketplace is merged after all remote sources.
	Marketplace map[string]any `yaml:"marketplace" toml:"marketplace"`
	// RemoveKeys are deleted last.
	RemoveKeys []string `yaml:"remove_keys" toml:"remove_keys"`
}

// Tool describes the packaging tool.
type Tool struct {
	// URLTemplate is the download URL; "{arch}" is replaced by the machine name.
	URLTemplate string `yaml:"url_template" toml:"url_template"`
	// Compression is passed to --comp.
	Compression string `yaml:"compression" toml:"compression"`
	// UpdateInfoTemplate is the --updateinformation value;
	// "{repository}" and "{product}" are substituted.
	UpdateInfoTemplate string `yaml:"update_info_template" toml:"update_info_template"`
	// ExtractAndRun sets APPIMAGE_EXTRACT_AND_RUN=1 for the tool, bypassing FUSE.
	ExtractAndRun bool `yaml:"extract_and_run" toml:"extract_and_run"`
}

// Output describes where artifacts go.
type Output struct {
	// DistDir receives the artifact, relative to the working directory.
	DistDir string `yaml:"dist_dir" toml:"dist_dir"`
	// SearchRoot is walked for the produced artifact; empty means the working directory.
	SearchRoot string `yaml:"search_root" toml:"search_root"`
}

// Timeouts bound network calls and subprocesses.
type Timeouts struct {
	// Request bounds metadata and patch requests.
	Request time.Duration `yaml:"request" toml:"request"`
	// Download bounds a whole archive or tool download.
	Download time.Duration `yaml:"download" toml:"download"`
	// Git bounds the tag lookup.
	Git time.Duration `yaml:"git" toml:"git"`
	// ToolExtract bounds the packaging tool self-extraction.
	ToolExtract time.Duration `yaml:"tool_extract" toml:"tool_extract"`
	// ToolBuild bounds the packaging tool run.
	ToolBuild time.Duration `yaml:"tool_build" toml:"tool_build"`
	// MarkerLifetime is the age after which a run marker is treated as stale.
	MarkerLifetime time.Duration `yaml:"marker_lifetime" toml:"marker_lifetime"`
}

const (
	// DefaultConfigFilename is loaded when present and no path is given.
	DefaultConfigFilename = "windsurf-appimage.yaml"

	// DefaultFilePermissions is the permission for written settings files.
	DefaultFilePermissions = 0o600

	// DefaultUserAgent mimics a desktop browser.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36"

	// DefaultRequestTimeout bounds metadata and patch requests.
	DefaultRequestTimeout = 30 * time.Second
	// DefaultDownloadTimeout bounds archive and tool downloads.
	DefaultDownloadTimeout = 30 * time.Minute
	// DefaultGitTimeout bounds git describe.
	DefaultGitTimeout = 10 * time.Second
	// DefaultToolExtractTimeout bounds --appimage-extract.
	DefaultToolExtractTimeout = 2 * time.Minute
	// DefaultToolBuildTimeout bounds the packaging tool run.
	DefaultToolBuildTimeout = 30 * time.Minute
	// DefaultMarkerLifetime is longer than any single run.
	DefaultMarkerLifetime = time.Hour
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errProductNameRequired is returned when the product name is empty.
	errProductNameRequired = errors.New("product name must be provided")
	// errAppDirRequired is returned when the extraction directory is empty.
	errAppDirRequired = errors.New("app dir must be provided")
	// errFieldRequired is returned when an endpoint field name is empty.
	errFieldRequired = errors.New("endpoint field names must be provided")
	// errUnsafeAppDir is returned for extraction directories outside the working directory.
	errUnsafeAppDir = errors.New("app dir must be a relative path inside the working directory")
)

// Default returns the settings that package Windsurf.
func Default() *Config {
	return &Config{
		Product: Product{
			Name:        "Windsurf",
			AppDir:      "windsurf.AppDir",
			AssetsDir:   ".",
			DesktopFile: "windsurf.desktop",
			Launcher:    "AppRun",
			IconSource:  "Windsurf/resources/app/resources/linux/code.png",
			IconName:    "windsurf.png",
			ProductJSON: "Windsurf/resources/app/product.json",
		},
		Upstream: Upstream{
			Endpoint:        "https://windsurf-stable.codeium.com/api/update/linux-x64/stable/latest",
			URLField:        "url",
			VersionField:    "windsurfVersion",
			UserAgent:       DefaultUserAgent,
			Accept:          "*/*",
			FallbackVersion: "0.0.0",
		},
		Patches: Patches{
			Sources: []PatchSource{
				{
					Name: "features",
					URL:  "https://aur.archlinux.org/cgit/aur.git/plain/patch.json?h=windsurf-features",
				},
			},
			Marketplace: map[string]any{
				"serviceUrl": "https://marketplace.visualstudio.com/_apis/public/gallery",
				"cacheUrl":   "https://vscode.blob.core.windows.net/gallery/index",
				"itemUrl":    "https://marketplace.visualstudio.com/items",
			},
			RemoveKeys: []string{"linkProtectionTrustedDomains"},
		},
		Tool: Tool{
			URLTemplate:        "https://github.com/AppImage/appimagetool/releases/download/continuous/appimagetool-{arch}.AppImage",
			Compression:        "zstd",
			UpdateInfoTemplate: "gh-releases-zsync|{repository}|latest|{product}*.AppImage.zsync",
			ExtractAndRun:      true,
		},
		Output: Output{
			DistDir: "dist",
		},
		Timeouts: Timeouts{
			Request:        DefaultRequestTimeout,
			Download:       DefaultDownloadTimeout,
			Git:            DefaultGitTimeout,
			ToolExtract:    DefaultToolExtractTimeout,
			ToolBuild:      DefaultToolBuildTimeout,
			MarkerLifetime: DefaultMarkerLifetime,
		},
	}
}

// Load reads settings from path on top of Default and validates them.
// An empty path loads DefaultConfigFilename when it exists and Default otherwise.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultConfigFilename); errors.Is(err, os.ErrNotExist) {
			return cfg, Validate(cfg)
		}

		path = DefaultConfigFilename
	}

	path, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expand settings path: %w", err)
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if isTOML(path) {
		if _, err = toml.Decode(string(contents), cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	} else if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path as TOML or YAML, depending on the extension.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)

	if isTOML(path) {
		var buf bytes.Buffer

		err = toml.NewEncoder(&buf).Encode(cfg)
		data = buf.Bytes()
	} else {
		data, err = yaml.Marshal(cfg)
	}

	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and URL formats, fills zero timeouts
// with defaults and expands "~" in directory settings.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if strings.TrimSpace(cfg.Product.Name) == "" {
		return errProductNameRequired
	}

	if err := validateAppDir(cfg.Product.AppDir); err != nil {
		return err
	}

	if cfg.Upstream.URLField == "" || cfg.Upstream.VersionField == "" {
		return errFieldRequired
	}

	if _, err := url.ParseRequestURI(cfg.Upstream.Endpoint); err != nil {
		return fmt.Errorf("invalid version endpoint: %w", err)
	}

	for _, source := range cfg.Patches.Sources {
		if _, err := url.ParseRequestURI(source.URL); err != nil {
			return fmt.Errorf("invalid patch source %q: %w", source.Name, err)
		}
	}

	if _, err := url.ParseRequestURI(cfg.Tool.URLTemplate); err != nil {
		return fmt.Errorf("invalid tool url template: %w", err)
	}

	if cfg.Tool.Compression == "" {
		cfg.Tool.Compression = "zstd"
	}

	if cfg.Output.DistDir == "" {
		cfg.Output.DistDir = "dist"
	}

	if cfg.Product.AssetsDir == "" {
		cfg.Product.AssetsDir = "."
	}

	if err := expandPaths(cfg); err != nil {
		return err
	}

	fillTimeouts(&cfg.Timeouts)

	return nil
}

// validateAppDir rejects extraction directories that a wipe could turn against
// something other than a dedicated subdirectory of the working directory.
func validateAppDir(appDir string) error {
	if appDir == "" {
		return errAppDirRequired
	}

	cleaned := filepath.Clean(appDir)
	if filepath.IsAbs(cleaned) || cleaned == "." || cleaned == ".." ||
		strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%s: %w", appDir, errUnsafeAppDir)
	}

	return nil
}

func expandPaths(cfg *Config) error {
	for _, p := range []*string{&cfg.Product.AssetsDir, &cfg.Output.DistDir, &cfg.Output.SearchRoot} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand %q: %w", *p, err)
		}

		*p = expanded
	}

	return nil
}

func fillTimeouts(t *Timeouts) {
	defaults := Default().Timeouts

	if t.Request <= 0 {
		t.Request = defaults.Request
	}

	if t.Download <= 0 {
		t.Download = defaults.Download
	}

	if t.Git <= 0 {
		t.Git = defaults.Git
	}

	if t.ToolExtract <= 0 {
		t.ToolExtract = defaults.ToolExtract
	}

	if t.ToolBuild <= 0 {
		t.ToolBuild = defaults.ToolBuild
	}

	if t.MarkerLifetime <= 0 {
		t.MarkerLifetime = defaults.MarkerLifetime
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
