// nftracker-sim writes synthetic conntrack, interface-counter and DHCP
// lease files once a second, so nftracker's collectors can be exercised on
// a machine without a real router's /proc files.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/untoldwind/nftracker/simulator"
)

func main() {
	var (
		debug         bool
		conntrackFile string
		deviceFile    string
		leasesFile    string
	)
	flag.BoolVar(&debug, "D", false, "Verbose (debug level) logging")
	flag.BoolVar(&debug, "debug", false, "Verbose (debug level) logging")
	flag.StringVar(&conntrackFile, "conntrack-file", "simulated.nf_conntrack", "Conntrack output file")
	flag.StringVar(&deviceFile, "device-file", "simulated.device", "Device counter output file")
	flag.StringVar(&leasesFile, "leases-file", "simulated.leases", "Lease output file")
	flag.Parse()

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	if debug {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)

	sim := simulator.NewConntrack()

	for {
		sim.Tick()

		if err := dump(conntrackFile, sim.WriteTo); err != nil {
			level.Error(logger).Log("msg", "write conntrack file failed", "err", err)
			os.Exit(1)
		}
		if err := dump(deviceFile, sim.WriteDevice); err != nil {
			level.Error(logger).Log("msg", "write device file failed", "err", err)
			os.Exit(1)
		}
		if err := dump(leasesFile, sim.WriteLeases); err != nil {
			level.Error(logger).Log("msg", "write leases file failed", "err", err)
			os.Exit(1)
		}

		level.Debug(logger).Log("msg", "tick")
		time.Sleep(time.Second)
	}
}

// dump renders via write and replaces path in one WriteFile call, keeping
// the window where a collector can observe a half-written file small.
func dump(path string, write func(*strings.Builder)) error {
	var b strings.Builder
	write(&b)
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
