package config

// EnvPrefix is intentionally empty: every variable names its full key in the
// envconfig tag.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "AIRWAVE_DB_DSN"
	EnvDBHost = "AIRWAVE_DB_HOST"
	EnvDBUser = "AIRWAVE_DB_USER"
	EnvDBName = "AIRWAVE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
