// Package sftpclient publishes artifacts to an SFTP server.
//
// Each Upload opens its own SSH connection, writes to a ".partial" file under
// RemoteRoot/<destination>, and renames it into place once the copy finishes.
// Host keys are verified against KnownHosts when it is set; otherwise any host
// key is accepted.
package sftpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"sessionreel/internal/publish"
	"sessionreel/internal/services"
)

// Config holds connection settings.
type Config struct {
	Host        string
	Port        int
	User        string
	Password    string
	KeyFile     string
	KnownHosts  string
	RemoteRoot  string
	DialTimeout time.Duration
}

// Client implements publish.Uploader over SFTP.
type Client struct {
	cfg Config
}

// New constructs a Client, applying port and root defaults.
func New(cfg Config) *Client {
	if cfg.Port <= 0 {
		cfg.Port = 22
	}
	if strings.TrimSpace(cfg.RemoteRoot) == "" {
		cfg.RemoteRoot = "/"
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 20 * time.Second
	}
	return &Client{cfg: cfg}
}

func (c *Client) addr() string {
	return net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
}

func (c *Client) clientConfig() (*ssh.ClientConfig, error) {
	if c.cfg.Host == "" || c.cfg.User == "" {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "sftp", "host and user required", nil)
	}
	var auth []ssh.AuthMethod
	if c.cfg.KeyFile != "" {
		pem, err := os.ReadFile(c.cfg.KeyFile)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "publish", "sftp", "read key file", err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "publish", "sftp", "parse key file", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if c.cfg.Password != "" {
		auth = append(auth, ssh.Password(c.cfg.Password))
	}
	if len(auth) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "sftp", "password or key file required", nil)
	}

	hostKey := ssh.InsecureIgnoreHostKey() //nolint:gosec
	if c.cfg.KnownHosts != "" {
		cb, err := knownhosts.New(c.cfg.KnownHosts)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "publish", "sftp", "load known_hosts", err)
		}
		hostKey = cb
	}
	return &ssh.ClientConfig{
		User:            c.cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         c.cfg.DialTimeout,
	}, nil
}

// connect dials the server and returns an SFTP session bound to ctx: the
// connection is closed when ctx ends.
func (c *Client) connect(ctx context.Context) (*sftp.Client, func(), error) {
	sshCfg, err := c.clientConfig()
	if err != nil {
		return nil, nil, err
	}
	dialer := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr())
	if err != nil {
		return nil, nil, services.Wrap(services.MarkerFor(err, services.ErrExternalTool), "publish", "sftp dial", c.addr(), err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, c.addr(), sshCfg)
	if err != nil {
		conn.Close()
		return nil, nil, services.Wrap(services.ErrExternalTool, "publish", "sftp handshake", c.addr(), err)
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)
	stop := context.AfterFunc(ctx, func() { _ = sshClient.Close() })

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		stop()
		sshClient.Close()
		return nil, nil, services.Wrap(services.ErrExternalTool, "publish", "sftp session", c.addr(), err)
	}
	closeAll := func() {
		stop()
		_ = sftpClient.Close()
		_ = sshClient.Close()
	}
	return sftpClient, closeAll, nil
}

// Upload implements publish.Uploader. destination is a directory relative to
// RemoteRoot.
func (c *Client) Upload(ctx context.Context, localPath, displayName, destination string) (publish.Remote, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return publish.Remote{}, services.Wrap(services.ErrNotFound, "publish", "sftp upload", localPath, err)
	}
	defer src.Close()

	client, closeAll, err := c.connect(ctx)
	if err != nil {
		return publish.Remote{}, err
	}
	defer closeAll()

	dir := path.Join(c.cfg.RemoteRoot, path.Clean("/"+destination))
	if err := client.MkdirAll(dir); err != nil {
		return publish.Remote{}, c.ctxWrap(ctx, "mkdir "+dir, err)
	}
	name := path.Base(displayName)
	remotePath := path.Join(dir, name)
	partial := remotePath + ".partial"

	dst, err := client.Create(partial)
	if err != nil {
		return publish.Remote{}, c.ctxWrap(ctx, "create "+partial, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = client.Remove(partial)
		return publish.Remote{}, c.ctxWrap(ctx, "copy", err)
	}
	if err := dst.Close(); err != nil {
		_ = client.Remove(partial)
		return publish.Remote{}, c.ctxWrap(ctx, "close "+partial, err)
	}
	if err := client.PosixRename(partial, remotePath); err != nil {
		_ = client.Remove(partial)
		return publish.Remote{}, c.ctxWrap(ctx, "rename", err)
	}

	link := url.URL{Scheme: "sftp", Host: c.addr(), Path: remotePath}
	if c.cfg.Port == 22 {
		link.Host = c.cfg.Host
	}
	return publish.Remote{ID: remotePath, Name: name, Link: link.String()}, nil
}

// Check implements publish.Checker by connecting and statting RemoteRoot.
func (c *Client) Check(ctx context.Context) error {
	client, closeAll, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer closeAll()
	info, err := client.Stat(c.cfg.RemoteRoot)
	if err != nil {
		return c.ctxWrap(ctx, "stat "+c.cfg.RemoteRoot, err)
	}
	if !info.IsDir() {
		return services.Wrap(services.ErrConfiguration, "publish", "sftp check", fmt.Sprintf("%s is not a directory", c.cfg.RemoteRoot), nil)
	}
	return nil
}

func (c *Client) ctxWrap(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	return services.Wrap(services.MarkerFor(err, services.ErrExternalTool), "publish", "sftp "+op, "", err)
}

var (
	_ publish.Uploader = (*Client)(nil)
	_ publish.Checker  = (*Client)(nil)
)
