package flags

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/ruteri/device-secrets-provisioning/common"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

var ConfigFlag = &cli.StringFlag{
	Name:    "config",
	EnvVars: []string{"SECRETGEN_CONFIG"},
	Usage:   "path to a YAML provisioning profile; built-in defaults are used when empty",
}

var FastFlag = &cli.BoolFlag{
	Name:    "fast",
	EnvVars: []string{"SECRETGEN_FAST"},
	Value:   false,
	Usage:   "use the reduced PIN hash iteration count of the fast profile",
}

var StoreFlag = &cli.StringSliceFlag{
	Name:    "store",
	EnvVars: []string{"SECRETGEN_STORE"},
	Value:   cli.NewStringSlice("."),
	Usage:   "storage location URI (file://, s3://, vault://); repeat to mirror artifacts to several backends",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
}
