package sources

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strconv"
	"time"

	"wifski/config"
	"wifski/logger"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

type sftpBackend struct {
	cfg config.SFTPSource
}

func (b *sftpBackend) clientConfig() (*ssh.ClientConfig, error) {
	var auths []ssh.AuthMethod
	if b.cfg.PrivateKeyFile != "" {
		keyBytes, err := os.ReadFile(b.cfg.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		auths = append(auths, ssh.PublicKeys(signer))
	}
	if b.cfg.Password != "" {
		auths = append(auths, ssh.Password(b.cfg.Password))
	}
	if len(auths) == 0 {
		return nil, fmt.Errorf("no auth method configured; set password or private_key_file")
	}

	hostKeys := ssh.InsecureIgnoreHostKey()
	if b.cfg.KnownHostsFile != "" {
		cb, err := knownhosts.New(b.cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("load known hosts: %w", err)
		}
		hostKeys = cb
	} else {
		logger.Warnf("sftp source %s: host key not verified, set known_hosts_file", b.cfg.Host)
	}

	return &ssh.ClientConfig{
		User:            b.cfg.User,
		Auth:            auths,
		HostKeyCallback: hostKeys,
		Timeout:         10 * time.Second,
	}, nil
}

func (b *sftpBackend) fetch(ctx context.Context, p string, dst *os.File) error {
	clientCfg, err := b.clientConfig()
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(b.cfg.Host, strconv.Itoa(b.cfg.Port))

	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial tcp %s: %w", addr, err)
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
	if err != nil {
		conn.Close()
		return fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	sshClient := ssh.NewClient(clientConn, chans, reqs)
	defer sshClient.Close()

	// closing the connection unblocks a transfer stuck on a dead peer
	stop := context.AfterFunc(ctx, func() { sshClient.Close() })
	defer stop()

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		return fmt.Errorf("create sftp client: %w", err)
	}
	defer sftpClient.Close()

	remotePath := path.Join(b.cfg.BaseDir, p)
	f, err := sftpClient.Open(remotePath)
	if err != nil {
		return fmt.Errorf("open remote file %s: %w", remotePath, err)
	}
	defer f.Close()

	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("copy from remote file %s: %w", remotePath, err)
	}
	return nil
}
