// Command remotelabctl is the host application stub: it loads the
// process configuration and service catalog, then either serves the HTTP
// surface (server package) or drives a single session end-to-end against
// one configured service, printing phase transitions as they happen. It
// stands in for the schematic editor GUI, which is out of scope here.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"remotelab/config"
	"remotelab/internal/devsession"
	"remotelab/internal/discovery"
	"remotelab/internal/journal"
	"remotelab/internal/metrics"
	"remotelab/internal/pins"
	"remotelab/internal/registry"
	"remotelab/internal/vhelper"
	"remotelab/server"
)

var opt struct {
	ConfigPath string
	Serve      bool
	Service    string
	Login      string
	Password   string
	DeviceType uint8
	Method     uint8
	Help       bool
}

func init() {
	pflag.StringVarP(&opt.ConfigPath, "config", "c", "config.yaml", "Path to config file")
	pflag.BoolVarP(&opt.Serve, "serve", "s", false, "Run the HTTP host surface instead of driving one session")
	pflag.StringVar(&opt.Service, "service", "", "Service name from the catalog to connect to")
	pflag.StringVar(&opt.Login, "login", "", "Login name for the chosen service")
	pflag.StringVar(&opt.Password, "password", "", "Password for the chosen service")
	pflag.Uint8Var(&opt.DeviceType, "device-type", 0, "Device type id to request")
	pflag.Uint8Var(&opt.Method, "method", 0, "Connection method id to request")
	pflag.BoolVarP(&opt.Help, "help", "h", false, "Show this help text")
}

func main() {
	pflag.Parse()
	if opt.Help {
		fmt.Printf("usage: %s [options]\n\noptions:\n%s", os.Args[0], pflag.CommandLine.FlagUsages())
		os.Exit(0)
	}

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(opt.ConfigPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	reg, err := registry.Load(cfg.Catalog.Path)
	if err != nil {
		log.Warnf("registry: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("remotelabctl: shutting down")
		cancel()
	}()

	if opt.Serve {
		runServe(ctx, cfg, reg)
		return
	}

	if err := runSession(ctx, reg); err != nil {
		log.Fatalf("session: %v", err)
	}
}

func runServe(ctx context.Context, cfg *config.Config, reg *registry.Registry) {
	jrnl := journal.NewWriter(cfg.Journal.Path, cfg.Journal.RetentionDays)
	defer jrnl.Close()

	mset := metrics.NewSet()

	srv := server.New(cfg.Server.Port, reg, jrnl, mset)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}

func runSession(ctx context.Context, reg *registry.Registry) error {
	if opt.Service == "" {
		return fmt.Errorf("remotelabctl: --service is required outside --serve mode")
	}
	svc, ok := reg.Lookup(opt.Service)
	if !ok {
		return fmt.Errorf("remotelabctl: unknown service %q", opt.Service)
	}

	disc := discovery.NewClient()
	status, err := disc.Status(ctx, svc)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	if err := discovery.CheckVersion(status.Version); err != nil {
		return err
	}

	result, err := disc.Login(ctx, svc, opt.Login, opt.Password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	catalog := pins.NewCatalog()
	auth := devsession.SessionAuth{Token: result.Token, DeviceTypeID: opt.DeviceType, MethodID: opt.Method}
	sess, err := devsession.Dial(result.Host+":"+strconv.Itoa(result.Port), auth, catalog)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer sess.Close()

	if vhelper.Applies(sess.Auth().MethodName) {
		vhelper.Launch()
	}

	log.Infof("remotelabctl: session established, phase=%s", sess.Phase())

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-sess.Events():
			if !ok {
				return nil
			}
			logEvent(e)
		}
	}
}

func logEvent(e devsession.Event) {
	switch v := e.(type) {
	case devsession.SessionStateChanged:
		log.Infof("remotelabctl: phase -> %s", v.Phase)
	case devsession.NeedQueueDecision:
		log.Warnf("remotelabctl: %s", v.Message)
	case devsession.QueueUpdated:
		log.Infof("remotelabctl: queue position %d, eta epoch %d", v.Position, v.EstimatedEpoch)
	case devsession.OutputChanged:
		log.Infof("remotelabctl: pin %d -> %v", v.PinID, v.Value)
	case devsession.LatencyWarning:
		log.Warnf("remotelabctl: latency band %v unusable=%v", v.Band, v.Unusable)
	default:
		log.Debugf("remotelabctl: event %T", v)
	}
}
