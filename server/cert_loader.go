package server

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

const defaultCertCheckInterval = time.Minute

// certLoader serves the listener's TLS certificate and picks up renewed
// files without a restart. The files are checked at most once per interval,
// on the first handshake after it has elapsed.
type certLoader struct {
	certFile string
	keyFile  string
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	cert      *tls.Certificate
	modTime   time.Time
	lastCheck time.Time
}

func newCertLoader(certFile, keyFile string, logger *slog.Logger) (*certLoader, error) {
	l := &certLoader{
		certFile: certFile,
		keyFile:  keyFile,
		interval: defaultCertCheckInterval,
		logger:   logger,
	}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

// GetCertificate is a callback for tls.Config.GetCertificate. A renewed pair
// that fails to load keeps the previous certificate in service.
func (l *certLoader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastCheck) < l.interval {
		return l.cert, nil
	}
	l.lastCheck = time.Now()

	mod, err := l.latestModTime()
	if err != nil {
		l.logger.Error("failed to stat tls files", "error", err)
		return l.cert, nil
	}
	if mod.After(l.modTime) {
		if err := l.load(); err != nil {
			l.logger.Error("failed to reload tls certificate", "error", err)
		}
	}
	return l.cert, nil
}

func (l *certLoader) latestModTime() (time.Time, error) {
	var latest time.Time
	for _, f := range []string{l.certFile, l.keyFile} {
		st, err := os.Stat(f)
		if err != nil {
			return time.Time{}, err
		}
		if st.ModTime().After(latest) {
			latest = st.ModTime()
		}
	}
	return latest, nil
}

// load reads the key pair. Callers hold mu, except during construction.
func (l *certLoader) load() error {
	mod, err := l.latestModTime()
	if err != nil {
		return fmt.Errorf("failed to stat tls files: %w", err)
	}
	cert, err := tls.LoadX509KeyPair(l.certFile, l.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load key pair: %w", err)
	}

	l.cert = &cert
	l.modTime = mod
	l.lastCheck = time.Now()
	l.logger.Info("loaded tls certificate", "cert", l.certFile, "key", l.keyFile)
	return nil
}
