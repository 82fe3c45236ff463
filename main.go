package ZeroTrustDB

import (
	"github.com/nickyhof/ZeroTrustDB/audit"
	"github.com/nickyhof/ZeroTrustDB/auth"
	"github.com/nickyhof/ZeroTrustDB/commit"
	"github.com/nickyhof/ZeroTrustDB/config"
	"github.com/nickyhof/ZeroTrustDB/core"
	"github.com/nickyhof/ZeroTrustDB/db"
	"github.com/nickyhof/ZeroTrustDB/he"
	"github.com/nickyhof/ZeroTrustDB/ps"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Instance owns the secret key and the state shared by its engines.
type Instance struct {
	Config     config.Config
	Key        *he.SecretKey
	Cipher     *he.Cipher
	Scheme     *commit.Scheme
	Ledger     *ps.Ledger
	Components *db.Components

	verifier *auth.TokenVerifier
}

// Open generates a fresh key and commitment salt and wires an empty
// database to an audit ledger, in memory unless cfg.Audit.Dir is set.
func Open(cfg config.Config) (*Instance, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	key, err := he.GenerateKey(cfg.Cipher.Dimension)
	if err != nil {
		return nil, errors.Wrap(err, "generating key")
	}

	instance, err := open(cfg, key)
	if err != nil {
		key.Destroy()
		return nil, err
	}
	return instance, nil
}

func open(cfg config.Config, key *he.SecretKey) (*Instance, error) {
	cipher, err := he.New(key, he.WithNoiseBits(cfg.Cipher.NoiseBits))
	if err != nil {
		return nil, err
	}

	scheme, err := commit.NewScheme()
	if err != nil {
		return nil, err
	}

	var ledger *ps.Ledger
	if cfg.Audit.Dir == "" {
		ledger, err = ps.NewMemoryLedger()
	} else {
		ledger, err = ps.NewFileLedger(cfg.Audit.Dir)
	}
	if err != nil {
		return nil, errors.Wrap(err, "opening audit ledger")
	}
	if cfg.Audit.Remote != "" {
		if err := addAuditRemote(ledger, cfg.Audit.Remote); err != nil {
			return nil, err
		}
	}

	log, err := audit.NewLog(ledger, cfg.Identity.Email)
	if err != nil {
		return nil, err
	}

	logger := cfg.NewLogger()
	logger.WithFields(logrus.Fields{
		"dimension":  cipher.Dimension(),
		"noise_bits": cipher.NoiseBits(),
		"max_terms":  cipher.MaxTerms(),
		"audit":      ledgerLocation(cfg),
	}).Debug("opened instance")

	instance := &Instance{
		Config:     cfg,
		Key:        key,
		Cipher:     cipher,
		Scheme:     scheme,
		Ledger:     ledger,
		Components: db.NewComponents(cipher, scheme, log, cfg.Cache.MaxEntries, logger),
	}

	if cfg.Auth.Secret != "" {
		instance.verifier, err = auth.NewTokenVerifier(cfg.TokenConfig())
		if err != nil {
			return nil, err
		}
	}

	return instance, nil
}

// addAuditRemote points the default remote at url, replacing a remote left
// behind by an earlier configuration.
func addAuditRemote(ledger *ps.Ledger, url string) error {
	remotes, err := ledger.ListRemotes()
	if err != nil {
		return err
	}
	for _, remote := range remotes {
		if remote.Name != ps.DefaultRemote {
			continue
		}
		if len(remote.URLs) == 1 && remote.URLs[0] == url {
			return nil
		}
		if err := ledger.RemoveRemote(ps.DefaultRemote); err != nil {
			return err
		}
	}
	return ledger.AddRemote(ps.DefaultRemote, url)
}

func ledgerLocation(cfg config.Config) string {
	if cfg.Audit.Dir == "" {
		return "memory"
	}
	return cfg.Audit.Dir
}

// Engine returns an engine acting as role.
func (instance *Instance) Engine(role core.Role) *db.Engine {
	return db.NewEngine(instance.Components, role)
}

// DefaultEngine returns an engine acting as the configured role.
func (instance *Instance) DefaultEngine() *db.Engine {
	return instance.Engine(instance.Config.Role)
}

// EngineFromToken returns an engine acting as the role carried by a signed
// token. It fails when no auth secret is configured.
func (instance *Instance) EngineFromToken(token string) (*db.Engine, error) {
	if instance.verifier == nil {
		return nil, errors.Wrap(auth.ErrInvalidToken, "no auth secret configured")
	}

	role, err := instance.verifier.Role(token)
	if err != nil {
		return nil, err
	}
	return instance.Engine(role), nil
}

// PushAudit replicates the audit ledger to the configured remote and returns
// the commit of the newest record pushed.
func (instance *Instance) PushAudit() (ps.Transaction, error) {
	if instance.Config.Audit.Remote == "" {
		return ps.Transaction{}, errors.New("no audit remote configured")
	}

	instance.Components.Lock.Lock()
	defer instance.Components.Lock.Unlock()

	auth := instance.Config.Audit.RemoteAuth
	if err := instance.Ledger.Push(ps.DefaultRemote, &auth); err != nil {
		return ps.Transaction{}, errors.Wrap(err, "pushing audit ledger")
	}
	return instance.Ledger.LatestTransaction(), nil
}

// Close wipes the secret key and releases the query cache. Ciphertexts held
// by the instance become undecryptable.
func (instance *Instance) Close() error {
	instance.Key.Destroy()
	return instance.Components.Cache.Close()
}
