package config

const (
	EnvPrefix = "SHOPPULSE"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "SHOPPULSE_APP_ENV"
)
