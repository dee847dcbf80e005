package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/CodedInternet/goservoctl/comms"
	"github.com/CodedInternet/goservoctl/onboard"
)

func setupTestDb(t *testing.T) {
	db, err := openDb(filepath.Join(t.TempDir(), "tmp", "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	ENV.DB = db
	ENV.JWT_SECRET = "this is a test secret"
	t.Cleanup(func() { db.Close() })
}

// startTestVehicle runs a vehicle on a simulated board for the duration of t.
func startTestVehicle(t *testing.T) *onboard.SimulatedBus {
	cfg := onboard.DefaultDriveConfig()
	cfg.Rate = 1000
	cfg.Arming.Enabled = false

	bus := onboard.NewSimulatedBus()
	v, err := onboard.NewVehicle(cfg, bus, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		v.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	ENV.Conductor = comms.NewConductor(v.Controller, cfg.Converter(), nil)
	return bus
}
