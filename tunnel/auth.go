package tunnel

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"
)

// discoverableKeys are looked up under ~/.ssh when no credential was
// named on the command line.
var discoverableKeys = []string{"id_ed25519", "id_ecdsa", "id_rsa"}

// errNoCredentials is returned when neither flags nor discovery yield
// anything to authenticate with.
var errNoCredentials = errors.New(
	"no SSH credentials found: use --ssh-key, --ssh-agent or --ssh-password")

// credentials resolves the gateway's auth methods on first use and
// keeps them for the life of the tunnel.  A reconnect between runs
// reuses them, so the operator is asked for a password or passphrase
// at most once.
type credentials struct {
	cfg    *SSHConfig
	prompt func(string) ([]byte, error)

	mu      sync.Mutex
	methods []ssh.AuthMethod
}

func newCredentials(cfg *SSHConfig) *credentials {
	return &credentials{cfg: cfg, prompt: promptSecret}
}

// Methods returns the resolved auth methods.  Failures are not cached.
func (c *credentials) Methods() ([]ssh.AuthMethod, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.methods != nil {
		return c.methods, nil
	}
	var (
		methods []ssh.AuthMethod
		err     error
	)
	if c.explicit() {
		methods, err = c.fromFlags()
	} else {
		methods = c.discover()
	}
	if err != nil {
		return nil, err
	}
	if len(methods) == 0 {
		return nil, errNoCredentials
	}
	c.methods = methods
	return methods, nil
}

func (c *credentials) explicit() bool {
	return c.cfg.KeyPath != "" || c.cfg.UseAgent || c.cfg.PromptPass
}

// fromFlags uses exactly what was asked for: key, then agent, then
// password.  Any of them failing is an error.
func (c *credentials) fromFlags() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if c.cfg.KeyPath != "" {
		signer, err := c.loadKey(c.cfg.KeyPath, true)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", c.cfg.KeyPath, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if c.cfg.UseAgent {
		signers, err := agentSigners()
		if err != nil {
			return nil, fmt.Errorf("ssh-agent: %w", err)
		}
		methods = append(methods, ssh.PublicKeysCallback(signers))
	}
	if c.cfg.PromptPass {
		pass, err := c.prompt(fmt.Sprintf("SSH password for %s@%s: ", c.cfg.User, c.cfg.Host))
		if err != nil {
			return nil, fmt.Errorf("reading password: %w", err)
		}
		methods = append(methods, ssh.Password(string(pass)))
	}
	return methods, nil
}

// discover collects what is usable without asking: a running agent and
// unencrypted keys under ~/.ssh.  Encrypted keys are skipped so an
// unattended -g run never stops at a passphrase prompt.
func (c *credentials) discover() []ssh.AuthMethod {
	var methods []ssh.AuthMethod
	if signers, err := agentSigners(); err == nil {
		methods = append(methods, ssh.PublicKeysCallback(signers))
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return methods
	}
	var keys []ssh.Signer
	for _, name := range discoverableKeys {
		if signer, err := c.loadKey(filepath.Join(home, ".ssh", name), false); err == nil {
			keys = append(keys, signer)
		}
	}
	if len(keys) > 0 {
		methods = append(methods, ssh.PublicKeys(keys...))
	}
	return methods
}

// loadKey parses a private key file, asking for its passphrase only
// when interactive is set.
func (c *credentials) loadKey(path string, interactive bool) (ssh.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(data)
	var missing *ssh.PassphraseMissingError
	if err == nil || !errors.As(err, &missing) || !interactive {
		return signer, err
	}

	pass, err := c.prompt(fmt.Sprintf("Enter passphrase for %s: ", path))
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	return ssh.ParsePrivateKeyWithPassphrase(data, pass)
}

func agentSigners() (func() ([]ssh.Signer, error), error) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, errors.New("SSH_AUTH_SOCK is not set")
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, fmt.Errorf("connecting to agent at %s: %w", sock, err)
	}
	return agent.NewClient(conn).Signers, nil
}

// promptSecret reads a line from the controlling terminal without
// echo.  It refuses to block on a non-interactive stdin.
func promptSecret(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	return secret, err
}

// ── host-key verification ────────────────────────────────────────────

func hostKeyCallback(cfg *SSHConfig) (ssh.HostKeyCallback, error) {
	if !cfg.StrictHostKey {
		//nolint:gosec // operator opted out of host key checking
		return ssh.InsecureIgnoreHostKey(), nil
	}

	khFile := cfg.KnownHosts
	if khFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating home directory: %w", err)
		}
		khFile = filepath.Join(home, ".ssh", "known_hosts")
	}

	cb, err := knownhosts.New(khFile)
	if err != nil {
		return nil, fmt.Errorf("loading known_hosts from %s: %w", khFile, err)
	}
	return cb, nil
}
