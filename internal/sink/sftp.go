package sink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"
)

// DefaultSSHPort is used when SFTPConfig.Port is zero
const DefaultSSHPort = 22

// SFTPConfig describes an upload destination reached over SSH
type SFTPConfig struct {
	Host string
	Port int
	// User defaults to the local login name
	User string
	// Path is the remote file, relative to the login directory unless absolute
	Path string
	// KeyFile is a private key. When empty the usual ~/.ssh identities are tried.
	KeyFile string
	// KnownHosts defaults to ~/.ssh/known_hosts
	KnownHosts string
	Timeout    time.Duration
}

// PassphraseFunc asks for the passphrase of an encrypted key file
type PassphraseFunc func(keyFile string) ([]byte, error)

// SFTP uploads output over SFTP, authenticating with the SSH agent and
// local key files. Host keys are verified against known_hosts.
type SFTP struct {
	cfg        SFTPConfig
	passphrase PassphraseFunc
}

// NewSFTP creates an SFTP sink. Encrypted keys prompt on the terminal.
func NewSFTP(cfg SFTPConfig) (*SFTP, error) {
	if cfg.Host == "" || cfg.Path == "" {
		return nil, errors.New("sftp upload needs a host and a remote path")
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultSSHPort
	}
	if cfg.User == "" {
		cfg.User = localUser()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.KnownHosts == "" {
		cfg.KnownHosts = "~/.ssh/known_hosts"
	}
	var err error
	if cfg.KnownHosts, err = expandHome(cfg.KnownHosts); err != nil {
		return nil, err
	}
	if cfg.KeyFile != "" {
		if cfg.KeyFile, err = expandHome(cfg.KeyFile); err != nil {
			return nil, err
		}
	}
	return &SFTP{cfg: cfg, passphrase: terminalPassphrase}, nil
}

// WithPassphrase replaces the terminal passphrase prompt
func (s *SFTP) WithPassphrase(fn PassphraseFunc) *SFTP {
	s.passphrase = fn
	return s
}

func (s *SFTP) Name() string {
	return fmt.Sprintf("sftp://%s@%s/%s", s.cfg.User, s.addr(), s.cfg.Path)
}

func (s *SFTP) addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

func (s *SFTP) Write(ctx context.Context, data []byte) error {
	hostKeys, err := knownhosts.New(s.cfg.KnownHosts)
	if err != nil {
		return fmt.Errorf("loading known hosts: %w", err)
	}

	auth, closeAgent, err := s.authMethods()
	if err != nil {
		return err
	}
	defer closeAgent()

	clientCfg := &ssh.ClientConfig{
		User:            s.cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         s.cfg.Timeout,
	}

	dialer := net.Dialer{Timeout: s.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.addr())
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", s.addr(), err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, s.addr(), clientCfg)
	if err != nil {
		conn.Close()
		return fmt.Errorf("ssh handshake with %s: %w", s.addr(), err)
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)
	defer sshClient.Close()

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		return fmt.Errorf("starting sftp session: %w", err)
	}
	defer client.Close()

	f, err := client.OpenFile(s.cfg.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("opening remote %s: %w", s.cfg.Path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing remote %s: %w", s.cfg.Path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing remote %s: %w", s.cfg.Path, err)
	}
	return nil
}

// authMethods collects agent and key-file signers. The returned func closes
// the agent connection, if one was opened.
func (s *SFTP) authMethods() ([]ssh.AuthMethod, func(), error) {
	var methods []ssh.AuthMethod
	closeAgent := func() {}

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
			closeAgent = func() { conn.Close() }
		}
	}

	keyFiles := []string{s.cfg.KeyFile}
	if s.cfg.KeyFile == "" {
		keyFiles = defaultKeyFiles()
	}
	var signers []ssh.Signer
	for _, path := range keyFiles {
		signer, err := s.loadKey(path, s.cfg.KeyFile != "")
		if err != nil {
			closeAgent()
			return nil, nil, err
		}
		if signer != nil {
			signers = append(signers, signer)
		}
	}
	if len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}

	if len(methods) == 0 {
		closeAgent()
		return nil, nil, errors.New("no ssh agent or private key available")
	}
	return methods, closeAgent, nil
}

// loadKey parses a private key file, prompting for a passphrase when it is
// encrypted. A missing file is an error only when required.
func (s *SFTP) loadKey(path string, required bool) (ssh.Signer, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		if !required && os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading key %s: %w", path, err)
	}

	signer, err := ssh.ParsePrivateKey(pem)
	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) {
		if s.passphrase == nil {
			return nil, fmt.Errorf("key %s is encrypted", path)
		}
		pass, perr := s.passphrase(path)
		if perr != nil {
			return nil, fmt.Errorf("reading passphrase for %s: %w", path, perr)
		}
		signer, err = ssh.ParsePrivateKeyWithPassphrase(pem, pass)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing key %s: %w", path, err)
	}
	return signer, nil
}

func defaultKeyFiles() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	var out []string
	for _, name := range []string{"id_ed25519", "id_ecdsa", "id_rsa"} {
		out = append(out, filepath.Join(home, ".ssh", name))
	}
	return out
}

func localUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

// terminalPassphrase prompts on stderr and reads without echo
func terminalPassphrase(keyFile string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("stdin is not a terminal")
	}
	fmt.Fprintf(os.Stderr, "Enter passphrase for %s: ", keyFile)
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	return pass, err
}
