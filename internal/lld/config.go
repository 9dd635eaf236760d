package lld

import "time"

// Config configures an Orchestrator, following processor/rule/config.go's
// schema-tag convention for values a deployment-time config UI could
// render, while keeping internal-only fields untagged.
type Config struct {
	// CatalogDSN is the connection string for the Postgres-backed
	// discovery-rule catalog.
	CatalogDSN string `json:"catalog_dsn" schema:"type:string,description:Postgres DSN for the discovery rule catalog,category:basic"`

	// EventBusSubjectPrefix roots every subject the event bus publishes
	// to (e.g. "lld").
	EventBusSubjectPrefix string `json:"event_bus_subject_prefix" schema:"type:string,description:NATS subject prefix for LLD state-transition events,default:lld,category:basic"`

	// EventBusRateLimit bounds ProcessEvents/CleanEvents calls per
	// second; zero disables limiting.
	EventBusRateLimit float64 `json:"event_bus_rate_limit" schema:"type:number,description:Max event-bus housekeeping calls per second,default:50,category:advanced"`

	// ItemCacheSize bounds the configuration cache's item-metadata LRU.
	ItemCacheSize int `json:"item_cache_size" schema:"type:int,description:Max cached rule item-metadata entries,default:4096,category:advanced"`

	// NamedExpressionCacheSize bounds the compiled named-expression LRU.
	NamedExpressionCacheSize int `json:"named_expression_cache_size" schema:"type:int,description:Max cached compiled named-expression sets,default:128,category:advanced"`

	// MaxRowWarnings caps accumulated missing-macro warnings per
	// invocation before further warnings are suppressed (spec.md §6
	// supplement #5).
	MaxRowWarnings int `json:"max_row_warnings" schema:"type:int,description:Max missing-macro warnings retained per invocation,default:10,category:advanced"`

	// MaxErrorColumnBytes bounds the persisted error text length
	// (spec.md §6 supplement #1).
	MaxErrorColumnBytes int `json:"max_error_column_bytes" schema:"type:int,description:Max bytes persisted to the rule error column,default:2048,category:advanced"`

	// LifetimeMaxClamp is the maximum lifetime duration a discovered
	// item may be kept for, clamping any longer configured lifetime
	// (spec.md's 25-year clamp).
	LifetimeMaxClamp time.Duration `json:"lifetime_max_clamp" schema:"type:string,description:Upper clamp on a rule's item lifetime,default:219000h,category:advanced"`
}

// DefaultConfig returns the production defaults, mirroring
// processor/rule.DefaultConfig.
func DefaultConfig() Config {
	return Config{
		EventBusSubjectPrefix:    "lld",
		EventBusRateLimit:        50,
		ItemCacheSize:            4096,
		NamedExpressionCacheSize: 128,
		MaxRowWarnings:           10,
		MaxErrorColumnBytes:      2048,
		LifetimeMaxClamp:         25 * 365 * 24 * time.Hour,
	}
}
