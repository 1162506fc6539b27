package deployment

import (
	"time"

	"github.com/dmitrymomot/releasekit/pkg/artifact"
	"github.com/dmitrymomot/releasekit/pkg/feature"
	"github.com/dmitrymomot/releasekit/pkg/rollback"
)

// Document is the persisted configuration, conventionally config.yaml.
// Field names are the external wire format and must stay stable across
// releases.
type Document struct {
	Deployment Section `yaml:"deployment" json:"deployment"`
}

// Section holds all deployment state: flag definitions, rollback policy,
// the installed pack registry, and runtime scalars.
type Section struct {
	Environment             string                 `yaml:"environment,omitempty" json:"environment,omitempty"`
	RolloutPercentage       float64                `yaml:"rollout_percentage,omitempty" json:"rollout_percentage,omitempty"`
	HealthCheckInterval     int                    `yaml:"health_check_interval_seconds,omitempty" json:"health_check_interval_seconds,omitempty"`
	MonitoringEnabled       bool                   `yaml:"monitoring_enabled,omitempty" json:"monitoring_enabled,omitempty"`
	FeatureFlags            map[string]FlagConfig  `yaml:"feature_flags,omitempty" json:"feature_flags,omitempty"`
	RollbackConfig          RollbackConfig         `yaml:"rollback_config,omitempty" json:"rollback_config,omitempty"`
	AttackPackVersions      map[string]PackVersion `yaml:"attack_pack_versions,omitempty" json:"attack_pack_versions,omitempty"`
	ActiveAttackPackVersion string                 `yaml:"active_attack_pack_version,omitempty" json:"active_attack_pack_version,omitempty"`
}

// FlagConfig is the persisted form of one feature flag.
type FlagConfig struct {
	Enabled           bool           `yaml:"enabled" json:"enabled"`
	Stage             string         `yaml:"stage" json:"stage"`
	RolloutPercentage float64        `yaml:"rollout_percentage" json:"rollout_percentage"`
	TargetGroups      []string       `yaml:"target_groups,omitempty" json:"target_groups,omitempty"`
	Metadata          map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// RollbackConfig is the persisted rollback policy.
type RollbackConfig struct {
	Enabled              bool                     `yaml:"enabled" json:"enabled"`
	CooldownMinutes      int                      `yaml:"cooldown_minutes" json:"cooldown_minutes"`
	MaxRollbacksPerDay   int                      `yaml:"max_rollbacks_per_day" json:"max_rollbacks_per_day"`
	NotificationChannels []string                 `yaml:"notification_channels,omitempty" json:"notification_channels,omitempty"`
	Triggers             map[string]TriggerConfig `yaml:"triggers,omitempty" json:"triggers,omitempty"`
}

// TriggerConfig is the persisted form of one automatic trigger rule.
type TriggerConfig struct {
	Enabled       bool    `yaml:"enabled" json:"enabled"`
	Threshold     float64 `yaml:"threshold" json:"threshold"`
	WindowMinutes int     `yaml:"window_minutes,omitempty" json:"window_minutes,omitempty"`
	MinRequests   int     `yaml:"min_requests,omitempty" json:"min_requests,omitempty"`
	Feature       string  `yaml:"feature,omitempty" json:"feature,omitempty"`
}

// PackVersion is the persisted registry record of one installed pack.
type PackVersion struct {
	FilePath         string         `yaml:"file_path" json:"file_path"`
	Checksum         string         `yaml:"checksum" json:"checksum"`
	DeployedAt       time.Time      `yaml:"deployed_at" json:"deployed_at"`
	IsActive         bool           `yaml:"is_active" json:"is_active"`
	ValidationStatus string         `yaml:"validation_status" json:"validation_status"`
	PatternCount     int            `yaml:"pattern_count" json:"pattern_count"`
	Metadata         map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// Flags converts the persisted flag map into domain flags, suitable for
// seeding a feature store.
func (d *Document) Flags() ([]*feature.Flag, error) {
	flags := make([]*feature.Flag, 0, len(d.Deployment.FeatureFlags))
	for name, cfg := range d.Deployment.FeatureFlags {
		stage, err := feature.ParseStage(cfg.Stage)
		if err != nil {
			return nil, err
		}
		flags = append(flags, &feature.Flag{
			Name:              name,
			Enabled:           cfg.Enabled,
			Stage:             stage,
			RolloutPercentage: cfg.RolloutPercentage,
			TargetGroups:      append([]string(nil), cfg.TargetGroups...),
			Metadata:          cloneMetadata(cfg.Metadata),
		})
	}
	return flags, nil
}

// SetFlags replaces the persisted flag map from domain flags.
func (d *Document) SetFlags(flags []*feature.Flag) {
	m := make(map[string]FlagConfig, len(flags))
	for _, f := range flags {
		if f == nil {
			continue
		}
		m[f.Name] = FlagConfig{
			Enabled:           f.Enabled,
			Stage:             string(f.Stage),
			RolloutPercentage: f.RolloutPercentage,
			TargetGroups:      append([]string(nil), f.TargetGroups...),
			Metadata:          cloneMetadata(f.Metadata),
		}
	}
	d.Deployment.FeatureFlags = m
}

// PackRegistry converts the persisted pack map into domain versions plus
// the active version id, suitable for artifact.WithRestoredVersions.
func (d *Document) PackRegistry() ([]*artifact.Version, string) {
	versions := make([]*artifact.Version, 0, len(d.Deployment.AttackPackVersions))
	for id, pv := range d.Deployment.AttackPackVersions {
		versions = append(versions, &artifact.Version{
			Version:          id,
			Path:             pv.FilePath,
			Checksum:         pv.Checksum,
			DeployedAt:       pv.DeployedAt,
			IsActive:         pv.IsActive,
			ValidationStatus: artifact.ValidationStatus(pv.ValidationStatus),
			PatternCount:     pv.PatternCount,
			Metadata:         cloneMetadata(pv.Metadata),
		})
	}
	return versions, d.Deployment.ActiveAttackPackVersion
}

// SetPackRegistry replaces the persisted pack map. Shaped to plug
// directly into artifact.WithPersist.
func (d *Document) SetPackRegistry(versions []*artifact.Version, active string) {
	m := make(map[string]PackVersion, len(versions))
	for _, v := range versions {
		if v == nil {
			continue
		}
		m[v.Version] = PackVersion{
			FilePath:         v.Path,
			Checksum:         v.Checksum,
			DeployedAt:       v.DeployedAt,
			IsActive:         v.IsActive,
			ValidationStatus: string(v.ValidationStatus),
			PatternCount:     v.PatternCount,
			Metadata:         cloneMetadata(v.Metadata),
		}
	}
	d.Deployment.AttackPackVersions = m
	d.Deployment.ActiveAttackPackVersion = active
}

// ControllerConfig converts the persisted rollback policy into a
// controller configuration.
func (d *Document) ControllerConfig() (rollback.Config, error) {
	rc := d.Deployment.RollbackConfig

	cfg := rollback.Config{
		Enabled:          rc.Enabled,
		Cooldown:         time.Duration(rc.CooldownMinutes) * time.Minute,
		DailyQuota:       rc.MaxRollbacksPerDay,
		FeatureByTrigger: make(map[rollback.Trigger]string, len(rc.Triggers)),
	}
	if d.Deployment.HealthCheckInterval > 0 {
		cfg.CheckInterval = time.Duration(d.Deployment.HealthCheckInterval) * time.Second
	}
	for kind, tc := range rc.Triggers {
		trigger, err := rollback.ParseTrigger(kind)
		if err != nil {
			return rollback.Config{}, err
		}
		cfg.Rules = append(cfg.Rules, rollback.Rule{
			Trigger:     trigger,
			Threshold:   tc.Threshold,
			Window:      time.Duration(tc.WindowMinutes) * time.Minute,
			MinRequests: tc.MinRequests,
			Enabled:     tc.Enabled,
		})
		if tc.Feature != "" {
			cfg.FeatureByTrigger[trigger] = tc.Feature
		}
	}
	return cfg, nil
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
