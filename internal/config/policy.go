package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ApplicationPolicy holds tunable lifecycle policy for informal applications.
type ApplicationPolicy struct {
	// TokenTTL is how long a public application token stays valid.
	TokenTTL time.Duration `mapstructure:"tokenTTL"`
	// DedupWindow suppresses duplicate application creation for the same
	// user and organization within the window. Zero disables dedup.
	DedupWindow time.Duration `mapstructure:"dedupWindow"`
	// MaxQuestions caps the number of questions per application type.
	MaxQuestions int `mapstructure:"maxQuestions"`
}

func DefaultApplicationPolicy() ApplicationPolicy {
	return ApplicationPolicy{
		TokenTTL:     7 * 24 * time.Hour,
		DedupWindow:  0,
		MaxQuestions: 50,
	}
}

// PolicyHolder exposes the current policy and hot-reloads it from disk.
type PolicyHolder struct {
	current atomic.Value // holds ApplicationPolicy
}

func NewPolicyHolder(log *zap.Logger) (*PolicyHolder, error) {
	log = log.Named("config.policy")
	v := viper.New()

	v.SetConfigName("policy")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/cardlink/config")
	v.AddConfigPath("/etc/cardlink")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CARDLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultApplicationPolicy()
	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
		v.SetDefault("application.tokenTTL", defaults.TokenTTL)
		v.SetDefault("application.dedupWindow", defaults.DedupWindow)
		v.SetDefault("application.maxQuestions", defaults.MaxQuestions)
	}

	var policy ApplicationPolicy
	if err := v.UnmarshalKey("application", &policy); err != nil {
		return nil, err
	}
	applyPolicyDefaults(&policy)
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}

	holder := &PolicyHolder{}
	holder.current.Store(policy)

	if fileFound {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated ApplicationPolicy
			if err := v.UnmarshalKey("application", &updated); err != nil {
				log.Warn("policy reload failed", zap.Error(err))
				return
			}
			applyPolicyDefaults(&updated)
			if err := validatePolicy(updated); err != nil {
				log.Warn("invalid policy config ignored", zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("policy reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

func (h *PolicyHolder) Get() ApplicationPolicy {
	return h.current.Load().(ApplicationPolicy)
}

// Set replaces the current policy. Intended for tests.
func (h *PolicyHolder) Set(policy ApplicationPolicy) {
	h.current.Store(policy)
}

func applyPolicyDefaults(policy *ApplicationPolicy) {
	defaults := DefaultApplicationPolicy()
	if policy.TokenTTL == 0 {
		policy.TokenTTL = defaults.TokenTTL
	}
	if policy.MaxQuestions == 0 {
		policy.MaxQuestions = defaults.MaxQuestions
	}
}

func validatePolicy(policy ApplicationPolicy) error {
	if policy.TokenTTL < time.Minute {
		return errors.New("application.tokenTTL must be at least one minute")
	}
	if policy.DedupWindow < 0 {
		return errors.New("application.dedupWindow cannot be negative")
	}
	if policy.MaxQuestions <= 0 {
		return errors.New("application.maxQuestions must be positive")
	}
	return nil
}
