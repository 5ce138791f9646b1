// Package publish deploys the bot by zipping the working directory and
// uploading the archive to the hosting platform's zip deploy endpoint.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/intrusionbot/internal/logging"
	"github.com/dmitrijs2005/intrusionbot/internal/netx"
	"github.com/dmitrijs2005/intrusionbot/internal/publish/config"
	"github.com/spf13/afero"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var ErrNoPassword = errors.New("deployment password is empty")

type Publisher struct {
	fs     afero.Fs
	client *http.Client
	logger logging.Logger
}

func New(fs afero.Fs, client *http.Client, l logging.Logger) *Publisher {
	if client == nil {
		client = &http.Client{}
	}
	return &Publisher{fs: fs, client: client, logger: l.With("module", "publish")}
}

// ArchivePath returns ../<name>.zip relative to dir.
func ArchivePath(dir, name string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(abs), name+".zip"), nil
}

// Publish zips cfg.Dir, uploads the archive and removes it after a 2xx
// response. On failure the archive is left in place. Uploads are not retried.
func (p *Publisher) Publish(ctx context.Context, cfg *config.Config) error {
	if cfg.Password == "" {
		return ErrNoPassword
	}

	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return err
	}
	dest, err := ArchivePath(dir, cfg.Name)
	if err != nil {
		return err
	}

	n, err := Zip(p.fs, dir, dest)
	if err != nil {
		return err
	}
	p.logger.Info(ctx, "archive created", "path", dest, "files", n)

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if err := p.upload(ctx, dest, cfg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", cfg.Name, err)
	}

	if err := p.fs.Remove(dest); err != nil {
		p.logger.Warn(ctx, "archive not removed", "path", dest, "error", err)
	}
	p.logger.Info(ctx, "published", "name", cfg.Name, "endpoint", cfg.Endpoint)
	return nil
}

func (p *Publisher) upload(ctx context.Context, path string, cfg *config.Config) error {
	f, err := p.fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	return netx.Put(ctx, p.client, cfg.Endpoint, f, info.Size(), "application/zip",
		&netx.BasicAuth{User: cfg.User, Password: cfg.Password})
}

// PromptPassword asks for the deployment password on the terminal without echo.
func PromptPassword(w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, "Deployment password: "); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
