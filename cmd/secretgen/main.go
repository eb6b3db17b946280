package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ruteri/device-secrets-provisioning/cmd/flags"
	"github.com/ruteri/device-secrets-provisioning/interfaces"
	"github.com/ruteri/device-secrets-provisioning/provisioner"
	"github.com/ruteri/device-secrets-provisioning/storage"
	"github.com/urfave/cli/v2"
)

var SecretgenServiceLogFlag = flags.LogServiceFlagFn("secretgen")

var SharesFlag = &cli.IntFlag{
	Name:  "shares",
	Value: 5,
	Usage: "number of escrow shares",
}
var ThresholdFlag = &cli.IntFlag{
	Name:  "threshold",
	Value: 3,
	Usage: "number of escrow shares required to recover the root bundle",
}

func main() {
	app := &cli.App{
		Name:  "secretgen",
		Usage: "Generate device secrets headers for AP and Component firmware builds",
		Flags: append([]cli.Flag{flags.ConfigFlag, flags.FastFlag, flags.StoreFlag, SecretgenServiceLogFlag}, flags.CommonFlags...),
		Commands: []*cli.Command{
			{
				Name:   "deployment",
				Usage:  "Generate a new root bundle. Previously generated device headers become stale",
				Action: runClass(interfaces.DeploymentClass),
			},
			{
				Name:   "ap",
				Usage:  "Generate the Application Processor header from its parameters and the root bundle",
				Action: runClass(interfaces.APClass),
			},
			{
				Name:   "component",
				Usage:  "Generate the Component header from its parameters and the root bundle",
				Action: runClass(interfaces.ComponentClass),
			},
			{
				Name:      "verify",
				Usage:     "Check a stored output against its inputs",
				ArgsUsage: "deployment|ap|component",
				Action:    verifyAction,
			},
			{
				Name:  "escrow",
				Usage: "Split the root bundle into Shamir shares or recover it",
				Subcommands: []*cli.Command{
					{
						Name:   "split",
						Usage:  "Split the stored root bundle into escrow shares",
						Flags:  []cli.Flag{SharesFlag, ThresholdFlag},
						Action: escrowSplitAction,
					},
					{
						Name:      "combine",
						Usage:     "Recover the root bundle from escrow shares",
						ArgsUsage: "[share artifact names...]",
						Flags:     []cli.Flag{SharesFlag},
						Action:    escrowCombineAction,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runClass(class interfaces.DeviceClass) cli.ActionFunc {
	return func(cCtx *cli.Context) error {
		ctx, cancel := signalContext(cCtx)
		defer cancel()

		p, logger, err := setupProvisioner(cCtx)
		if err != nil {
			return err
		}

		if err := p.Run(ctx, class); err != nil {
			logger.Error("Generation failed", slog.String("class", class.String()), "err", err)
			return err
		}
		return nil
	}
}

func verifyAction(cCtx *cli.Context) error {
	if cCtx.NArg() != 1 {
		return fmt.Errorf("%w: expected exactly one device class", interfaces.ErrInvalidParameter)
	}
	class, err := interfaces.ParseDeviceClass(cCtx.Args().First())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cCtx)
	defer cancel()

	p, logger, err := setupProvisioner(cCtx)
	if err != nil {
		return err
	}

	if err := p.Verify(ctx, class); err != nil {
		logger.Error("Verification failed", slog.String("class", class.String()), "err", err)
		return err
	}
	return nil
}

func escrowSplitAction(cCtx *cli.Context) error {
	ctx, cancel := signalContext(cCtx)
	defer cancel()

	p, logger, err := setupProvisioner(cCtx)
	if err != nil {
		return err
	}

	names, err := p.SplitRootBundle(ctx, cCtx.Int(SharesFlag.Name), cCtx.Int(ThresholdFlag.Name))
	if err != nil {
		logger.Error("Failed to split root bundle", "err", err)
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func escrowCombineAction(cCtx *cli.Context) error {
	ctx, cancel := signalContext(cCtx)
	defer cancel()

	p, logger, err := setupProvisioner(cCtx)
	if err != nil {
		return err
	}

	var names []interfaces.ArtifactName
	if cCtx.NArg() > 0 {
		for _, arg := range cCtx.Args().Slice() {
			name, err := interfaces.NewArtifactName(arg)
			if err != nil {
				return err
			}
			names = append(names, name)
		}
	} else {
		for i := 1; i <= cCtx.Int(SharesFlag.Name); i++ {
			names = append(names, p.EscrowShareName(i))
		}
	}

	if err := p.RecoverRootBundle(ctx, names); err != nil {
		logger.Error("Failed to recover root bundle", "err", err)
		return err
	}
	return nil
}

// setupProvisioner loads the profile and opens the configured storage locations.
func setupProvisioner(cCtx *cli.Context) (*provisioner.Provisioner, *slog.Logger, error) {
	logger := flags.SetupLogger(cCtx)

	profile := provisioner.DefaultProfile()
	if path := cCtx.String(flags.ConfigFlag.Name); path != "" {
		var err error
		if profile, err = provisioner.LoadProfile(path); err != nil {
			logger.Error("Failed to load profile", slog.String("path", path), "err", err)
			return nil, nil, err
		}
	}
	if cCtx.Bool(flags.FastFlag.Name) {
		profile.Iterations = provisioner.FastIterations
	}

	var locations []interfaces.StorageBackendLocation
	for _, uri := range cCtx.StringSlice(flags.StoreFlag.Name) {
		location, err := interfaces.NewStorageBackendLocation(uri)
		if err != nil {
			logger.Error("Invalid storage location", slog.String("uri", uri), "err", err)
			return nil, nil, err
		}
		locations = append(locations, location)
	}

	backend, err := storage.NewStorageBackendFactory(logger).CreateMultiBackend(locations)
	if err != nil {
		logger.Error("Failed to create storage backend", "err", err)
		return nil, nil, err
	}

	p, err := provisioner.NewProvisioner(backend, profile, logger)
	if err != nil {
		logger.Error("Invalid provisioning profile", "err", err)
		return nil, nil, err
	}

	logger.Debug("Provisioner configured",
		slog.String("storage", backend.LocationURI()),
		slog.Int("iterations", profile.Iterations),
		slog.String("curve", profile.Curve))
	return p, logger, nil
}

func signalContext(cCtx *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cCtx.Context, os.Interrupt, syscall.SIGTERM)
}
