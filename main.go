package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/CodedInternet/goservoctl/comms"
	"github.com/CodedInternet/goservoctl/onboard"
	"github.com/CodedInternet/goservoctl/onboard/i2c"
	"github.com/asdine/storm/v3"
	"github.com/caarlos0/env/v6"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type EnvConfig struct {
	JWT_ISSUER string `env:"JWT_ISSUER" envDefault:"DEV"`
	JWT_SECRET string `env:"JWT_SECRET"`
	DEBUG      bool   `env:"DEBUG" envDefault:"false"`
	SRCDIR     string `env:"SRCDIR" envDefault:"."`
	CONFIG     string `env:"CONFIG"`
	DB_PATH    string `env:"DB_PATH" envDefault:"./tmp/dev.db"`
	LISTEN     string `env:"LISTEN" envDefault:"0.0.0.0:8080"`
	DB         *storm.DB
	Conductor  *comms.Conductor
	Log        *zap.SugaredLogger
	Simulated  bool
}

var (
	ENV *EnvConfig
)

func init() {
	ENV = new(EnvConfig)
	if err := env.Parse(ENV); err != nil {
		panic(err)
	}
	ENV.Log = zap.NewNop().Sugar()
}

func main() {
	simulated := flag.Bool("sim", false, "Run against a simulated PWM board")
	port := flag.String("port", ENV.LISTEN, "Specify the ip:port to listen on")
	configFile := flag.String("config", ENV.CONFIG, "Path to the drive config")
	withShell := flag.Bool("shell", false, "Start the interactive development shell")
	flag.Parse()

	logger, err := newLogger(ENV.DEBUG)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Sugar()
	ENV.Log = log
	ENV.Simulated = *simulated

	if ENV.JWT_SECRET == "" {
		ENV.JWT_SECRET = randomSecret()
		log.Warnw("JWT_SECRET not set, tokens will not survive a restart")
	}

	filename := *configFile
	if filename == "" {
		filename = filepath.Join(ENV.SRCDIR, "drive_config.yaml")
	}
	config, err := onboard.LoadConfig(filename)
	if err != nil {
		log.Fatalw("unable to load config", "file", filename, "error", err)
	}

	// the bus comes up before the database so a missing board exits
	// without leaving the bolt file locked
	vehicle, err := startVehicle(config, ENV.Simulated, log)
	if err != nil {
		log.Fatalw("unable to start pwm board", "device", config.Bus.Device, "error", err)
	}

	db, err := openDb(ENV.DB_PATH)
	if err != nil {
		vehicle.Close()
		log.Fatalw("unable to open database", "file", ENV.DB_PATH, "error", err)
	}
	ENV.DB = db

	ENV.Conductor = comms.NewConductor(vehicle.Controller, config.Converter(), log.Named("comms"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *withShell {
		shell := newShell()
		go func() {
			shell.Run()
			stop()
		}()
	}

	server := &http.Server{Addr: *port, Handler: newRouter()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return vehicle.Run(gctx)
	})
	g.Go(func() error {
		return ENV.Conductor.UpdateClients(gctx)
	})
	g.Go(func() error {
		log.Infow("listening", "addr", *port)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(sctx)
	})

	err = g.Wait()
	if cerr := ENV.DB.Close(); cerr != nil {
		log.Warnw("unable to close database", "error", cerr)
	}
	if err != nil {
		log.Fatalw("stopped with error", "error", err)
	}
	log.Infow("stopped")
}

// startVehicle claims the bus (or the simulated board) and initializes the
// chip on it. Any error here is fatal to the process.
func startVehicle(config *onboard.DriveConfig, simulated bool, log *zap.SugaredLogger) (*onboard.Vehicle, error) {
	var conn i2c.Conn
	if simulated {
		log.Infow("using simulated pwm board")
		conn = onboard.NewSimulatedBus()
	} else {
		var err error
		conn, err = onboard.OpenBus(config.Bus)
		if err != nil {
			return nil, err
		}
	}
	return onboard.NewVehicle(config, conn, log.Named("vehicle"))
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func openDb(dbFile string) (db *storm.DB, err error) {
	dir := filepath.Dir(dbFile)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err = storm.Open(dbFile)
	if err != nil {
		return
	}

	// call inits for each type
	if err := db.Init(&User{}); err != nil {
		return nil, err
	}

	return
}
