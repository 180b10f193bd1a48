package config

// EnvPrefix is intentionally empty: every field names its variable explicitly.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvDBDSN  = "SHOPLANE_DB_DSN"
	EnvDBHost = "SHOPLANE_DB_HOST"
	EnvDBUser = "SHOPLANE_DB_USER"
	EnvDBName = "SHOPLANE_DB_NAME"
)

var fallbackDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
