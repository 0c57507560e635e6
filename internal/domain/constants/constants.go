// Package constants holds configuration values shared across layers.
package constants

const (
	EnvDevelop    = "develop"
	EnvProduction = "production"
)

// Event publisher providers selectable through pubsub.provider.
const (
	PubSubProviderLog     = "log"
	PubSubProviderLocal   = "local"
	PubSubProviderGoogle  = "google"
	PubSubProviderGoCloud = "gocloud"
)

// Account store drivers selectable through store.driver.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)
