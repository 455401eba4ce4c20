package packager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/oshokin/windsurf-appimage/internal/appdir"
	"github.com/oshokin/windsurf-appimage/internal/appimagetool"
	"github.com/oshokin/windsurf-appimage/internal/archive"
	"github.com/oshokin/windsurf-appimage/internal/artifact"
	"github.com/oshokin/windsurf-appimage/internal/ci"
	"github.com/oshokin/windsurf-appimage/internal/config"
	"github.com/oshokin/windsurf-appimage/internal/domain/build"
	"github.com/oshokin/windsurf-appimage/internal/gittag"
	"github.com/oshokin/windsurf-appimage/internal/httpclient"
	"github.com/oshokin/windsurf-appimage/internal/logger"
	"github.com/oshokin/windsurf-appimage/internal/productjson"
	"github.com/oshokin/windsurf-appimage/internal/service/download"
	"github.com/oshokin/windsurf-appimage/internal/service/upstream"
)

// Options contains inputs for the packager entry point.
type Options struct {
	// ConfigPath is an optional settings file; ignored when Config is set.
	ConfigPath string
	// Config overrides loading from ConfigPath.
	Config *config.Config
	// WorkDir is where git runs and the AppDir is created; the current directory when empty.
	WorkDir string
	// DistDir overrides the configured dist directory.
	DistDir string
	// SearchRoot overrides the configured artifact search root.
	SearchRoot string
	// GitHubEnv is the runner's env file; nothing is exported when empty.
	GitHubEnv string
	// Repository is owner/name used for the embedded update information.
	Repository string
	// Out receives download progress; os.Stdout when nil.
	Out io.Writer
}

// runner holds the state of a single packaging run.
// It is unexported, callers should use Run.
type runner struct {
	cfg        *config.Config
	workDir    string
	appDir     string
	distDir    string
	searchRoot string
	githubEnv  string
	repository string
	out        io.Writer

	// metadataHTTP is bounded per request, downloadHTTP by the download timeout.
	metadataHTTP *http.Client
	downloadHTTP *http.Client

	info        *build.VersionInfo
	archivePath string
	toolDir     string
	tool        *appimagetool.Tool
	marker      *marker
}

// Run executes the packaging workflow.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "packager")

	r, err := newRunner(opts)
	if err != nil {
		return fmt.Errorf("initialize packager: %w", err)
	}

	defer r.cleanup(ctx)

	if err = r.run(ctx); err != nil {
		return fmt.Errorf("packager failed: %w", err)
	}

	return nil
}

// newRunner resolves settings and directories without touching the filesystem.
func newRunner(opts *Options) (*runner, error) {
	if opts == nil {
		opts = &Options{}
	}

	cfg := opts.Config
	if cfg == nil {
		var err error

		if cfg, err = config.Load(opts.ConfigPath); err != nil {
			return nil, err
		}
	} else if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	workDir := opts.WorkDir
	if workDir == "" {
		workDir = "."
	}

	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	r := &runner{
		cfg:        cfg,
		workDir:    workDir,
		appDir:     filepath.Join(workDir, cfg.Product.AppDir),
		distDir:    resolve(workDir, firstNonEmpty(opts.DistDir, cfg.Output.DistDir)),
		searchRoot: resolve(workDir, firstNonEmpty(opts.SearchRoot, cfg.Output.SearchRoot, ".")),
		githubEnv:  opts.GitHubEnv,
		repository: opts.Repository,
		out:        opts.Out,
	}

	if r.out == nil {
		r.out = os.Stdout
	}

	headers := map[string]string{
		"User-Agent": cfg.Upstream.UserAgent,
		"Accept":     cfg.Upstream.Accept,
	}

	metadata := httpclient.DefaultConfig()
	metadata.Timeout = cfg.Timeouts.Request
	metadata.Headers = headers
	r.metadataHTTP = httpclient.New(metadata)

	downloads := httpclient.DefaultConfig()
	downloads.Timeout = 0
	downloads.Headers = headers
	r.downloadHTTP = httpclient.New(downloads)

	return r, nil
}

// run performs the pipeline steps in order.
func (r *runner) run(ctx context.Context) error {
	needed, err := r.determineUpdateNeeded(ctx)
	if err != nil {
		return err
	}

	if !needed {
		logger.InfoKV(ctx, "Already up to date, nothing to package", "version", r.info.CurrentVersion)

		return nil
	}

	if r.marker, err = acquireMarker(ctx, r.workDir, r.cfg.Timeouts.MarkerLifetime); err != nil {
		return err
	}

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"export build variables", r.exportVariables},
		{"download archive", r.downloadArchive},
		{"prepare app dir", r.prepareAppDir},
		{"install packaging tool", r.installTool},
		{"patch product json", r.patchProductJSON},
		{"build appimage", r.buildAppImage},
	}

	for _, step := range steps {
		logger.DebugKV(ctx, "Starting step", "step", step.name)

		if err = step.fn(ctx); err != nil {
			return err
		}
	}

	return nil
}

// determineUpdateNeeded resolves both versions and compares them.
func (r *runner) determineUpdateNeeded(ctx context.Context) (bool, error) {
	resolver := &gittag.Resolver{
		Dir:      r.workDir,
		Fallback: r.cfg.Upstream.FallbackVersion,
		Timeout:  r.cfg.Timeouts.Git,
	}

	current := resolver.Resolve(ctx)

	client := &upstream.Client{
		HTTP:         r.metadataHTTP,
		Endpoint:     r.cfg.Upstream.Endpoint,
		URLField:     r.cfg.Upstream.URLField,
		VersionField: r.cfg.Upstream.VersionField,
	}

	info, err := client.FetchLatest(ctx)
	if err != nil {
		return false, err
	}

	info.CurrentVersion = current
	r.info = info

	logger.InfoKV(ctx, "Versions resolved", "current", info.CurrentVersion, "latest", info.LatestVersion)

	return upstream.NeedsUpdate(ctx, info.CurrentVersion, info.LatestVersion), nil
}

// exportVariables tells later workflow steps that a new version is being built.
func (r *runner) exportVariables(ctx context.Context) error {
	if r.githubEnv == "" {
		logger.Debug(ctx, "No runner env file, skipping variable export")

		return nil
	}

	if err := ci.AppendEnv(r.githubEnv, ci.BuildResult(r.info.LatestVersion)); err != nil {
		return build.FileSystemError("export build variables", r.githubEnv, err)
	}

	logger.InfoKV(ctx, "Build variables exported", "file", r.githubEnv, "version", r.info.LatestVersion)

	return nil
}

// downloadArchive fetches the upstream tar.gz into a temporary file.
func (r *runner) downloadArchive(ctx context.Context) error {
	path, err := r.downloader().ToTemp(ctx, r.info.DownloadURL, ".tar.gz", r.cfg.Product.Name)
	if err != nil {
		return err
	}

	r.archivePath = path

	return nil
}

// prepareAppDir wipes the AppDir, unpacks the archive into it and overlays the assets.
func (r *runner) prepareAppDir(ctx context.Context) error {
	if err := appdir.Reset(ctx, r.appDir); err != nil {
		return err
	}

	if err := archive.ExtractTarGz(ctx, r.archivePath, r.appDir); err != nil {
		return err
	}

	// The archive is no longer needed and may be large.
	r.removeArchive(ctx)

	assets := &appdir.Assets{
		SourceDir:   resolve(r.workDir, r.cfg.Product.AssetsDir),
		DesktopFile: r.cfg.Product.DesktopFile,
		Launcher:    r.cfg.Product.Launcher,
		IconSource:  r.cfg.Product.IconSource,
		IconName:    r.cfg.Product.IconName,
	}

	return appdir.Overlay(ctx, r.appDir, assets)
}

// installTool downloads the packaging tool for this machine and unpacks it.
func (r *runner) installTool(ctx context.Context) error {
	dir, err := os.MkdirTemp("", "windsurf-appimage-tool-*")
	if err != nil {
		return build.FileSystemError("create tool directory", os.TempDir(), err)
	}

	r.toolDir = dir

	url := appimagetool.ToolURL(r.cfg.Tool.URLTemplate, appimagetool.Machine())
	downloaded := filepath.Join(dir, toolProcessName+".download")

	if err = r.downloader().Download(ctx, url, downloaded, toolProcessName); err != nil {
		return err
	}

	toolPath := filepath.Join(dir, toolProcessName)
	if err = appimagetool.Install(ctx, downloaded, toolPath); err != nil {
		return err
	}

	_ = os.Remove(downloaded)

	entryPoint, err := appimagetool.Extract(ctx, toolPath, dir, r.cfg.Timeouts.ToolExtract)
	if err != nil {
		return err
	}

	r.tool = &appimagetool.Tool{
		EntryPoint:    entryPoint,
		Compression:   r.cfg.Tool.Compression,
		ExtractAndRun: r.cfg.Tool.ExtractAndRun,
		Timeout:       r.cfg.Timeouts.ToolBuild,
		Stdout:        r.out,
		Stderr:        os.Stderr,
	}

	return nil
}

// patchProductJSON applies remote patches in order, then the marketplace
// patch, then removes the configured keys.
func (r *runner) patchProductJSON(ctx context.Context) error {
	path := filepath.Join(r.appDir, r.cfg.Product.ProductJSON)
	fetcher := &productjson.Fetcher{HTTP: r.metadataHTTP}

	for _, source := range r.cfg.Patches.Sources {
		logger.InfoKV(ctx, "Applying patch", "source", source.Name, "url", source.URL)

		patch, err := fetcher.Fetch(ctx, source.URL)
		if err != nil {
			return err
		}

		if err = productjson.ApplyFile(path, patch); err != nil {
			return err
		}
	}

	marketplace, err := productjson.PatchFromValues(r.cfg.Patches.Marketplace)
	if err != nil {
		return build.ParseError("encode marketplace patch", path, err)
	}

	if err = productjson.ApplyFile(path, marketplace, r.cfg.Patches.RemoveKeys...); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Product JSON patched", "path", path)

	return nil
}

// buildAppImage runs the tool, then moves the artifact into the dist directory.
func (r *runner) buildAppImage(ctx context.Context) error {
	result := &build.Artifact{
		Name:    r.cfg.Product.Name,
		Version: r.info.LatestVersion,
		Machine: appimagetool.Machine(),
	}

	updateInfo, err := r.updateInformation(ctx)
	if err != nil {
		return err
	}

	if err = r.tool.Build(ctx, r.workDir, r.appDir, updateInfo, result.FileName()); err != nil {
		return err
	}

	found, err := artifact.Locate(ctx, r.searchRoot, result.FileName(), r.appDir, r.distDir)
	if err != nil {
		return err
	}

	if result.Path, err = artifact.Move(ctx, found, r.distDir); err != nil {
		return err
	}

	logger.InfoKV(ctx, "AppImage ready", "path", result.Path, "version", result.Version)

	return nil
}

// updateInformation builds the --updateinformation value.
func (r *runner) updateInformation(ctx context.Context) (string, error) {
	if r.repository == "" {
		logger.Warn(ctx, "No repository set, update information will not resolve to a release")
	}

	info, err := ci.UpdateInformation(r.cfg.Tool.UpdateInfoTemplate, r.repository, r.cfg.Product.Name)
	if err != nil {
		return "", fmt.Errorf("update information: %w", err)
	}

	return info, nil
}

func (r *runner) downloader() *download.Downloader {
	return &download.Downloader{
		HTTP:    r.downloadHTTP,
		Out:     r.out,
		Timeout: r.cfg.Timeouts.Download,
	}
}

func (r *runner) removeArchive(ctx context.Context) {
	if r.archivePath == "" {
		return
	}

	if err := os.Remove(r.archivePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Unable to remove downloaded archive", "path", r.archivePath, "error", err)
	}

	r.archivePath = ""
}

// cleanup removes temporary files and the run marker.
func (r *runner) cleanup(ctx context.Context) {
	r.removeArchive(ctx)

	if r.toolDir != "" {
		if err := os.RemoveAll(r.toolDir); err != nil {
			logger.WarnKV(ctx, "Unable to remove tool directory", "path", r.toolDir, "error", err)
		}
	}

	r.marker.release(ctx)
}

// resolve makes path absolute against base.
func resolve(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(base, path)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
