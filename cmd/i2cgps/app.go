package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"i2cgps/internal/config"
	"i2cgps/internal/gpio"
	"i2cgps/internal/i2c"
	"i2cgps/internal/i2cgps"
	"i2cgps/internal/mqttpub"
	"i2cgps/internal/periphbus"
	"i2cgps/internal/poller"
	"i2cgps/internal/sim"
	"i2cgps/internal/udp"
	"i2cgps/internal/web"
)

type app struct {
	cfg config.Config
	log *logrus.Entry

	bus    io.Closer
	driver *i2cgps.Driver
	svc    *poller.Service

	fixes *web.FixBroadcaster
	logs  *web.LogBuffer
	udp   *udp.Broadcaster
	mqtt  *mqttpub.Publisher
}

// openPort returns the bus for the configured backend. The closer is nil for
// the simulator.
func openPort(cfg config.Config) (i2cgps.Port, io.Closer, error) {
	switch cfg.GPS.Backend {
	case config.BackendDevfs:
		b, err := i2c.Open(cfg.GPS.Bus)
		if err != nil {
			return nil, nil, fmt.Errorf("i2c open %s: %w", cfg.GPS.Bus, err)
		}
		return b, b, nil
	case config.BackendPeriph:
		b, err := periphbus.Open(cfg.GPS.Bus)
		if err != nil {
			return nil, nil, err
		}
		return b, b, nil
	case config.BackendSim:
		return &sim.Receiver{
			Track: sim.Track{
				CenterLatDeg: cfg.Sim.CenterLatDeg,
				CenterLonDeg: cfg.Sim.CenterLonDeg,
				AltM:         cfg.Sim.AltM,
				RadiusM:      cfg.Sim.RadiusM,
				Period:       cfg.Sim.Period,
			},
			Addr:       cfg.GPS.Address,
			BusyPolls:  cfg.Sim.BusyPolls,
			NoFixEvery: cfg.Sim.NoFixEvery,
		}, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown gps backend %q", cfg.GPS.Backend)
	}
}

func driverOptions(cfg config.GPSConfig) i2cgps.Options {
	return i2cgps.Options{
		Address:      cfg.Address,
		PollInterval: cfg.PollInterval,
		MaxWait:      cfg.MaxWait,
		FrameSize:    cfg.FrameSize,
	}
}

func newApp(ctx context.Context, cfg config.Config, log *logrus.Entry, logs *web.LogBuffer) (*app, error) {
	rt := &app{cfg: cfg, log: log, logs: logs, fixes: web.NewFixBroadcaster()}
	ok := false
	defer func() {
		if !ok {
			rt.Close()
		}
	}()

	g := cfg.GPS
	if g.Reset.Enable && g.Backend != config.BackendSim {
		log.WithField("gpio", g.Reset.GPIO).Info("pulsing receiver reset")
		if err := gpio.PulseReset(ctx, g.Reset.GPIO, g.Reset.Pulse, g.Reset.Settle); err != nil {
			return nil, fmt.Errorf("gps reset: %w", err)
		}
	}

	port, closer, err := openPort(cfg)
	if err != nil {
		return nil, err
	}
	rt.bus = closer

	rt.driver = i2cgps.New(port, driverOptions(g))
	if err := rt.driver.Initialize(); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"backend":    g.Backend,
		"bus":        g.Bus,
		"addr":       fmt.Sprintf("0x%02X", rt.driver.Address()),
		"frame_size": rt.driver.FrameSize(),
	}).Info("gps initialized")

	sinks := []poller.Sink{rt.fixes}
	if cfg.NMEAUDP.Enable {
		b, err := udp.NewBroadcaster(cfg.NMEAUDP.Dest)
		if err != nil {
			return nil, fmt.Errorf("nmea udp: %w", err)
		}
		rt.udp = b
		sinks = append(sinks, b)
		log.WithField("dest", cfg.NMEAUDP.Dest).Info("nmea udp enabled")
	}
	if cfg.MQTT.Enable {
		p, err := mqttpub.Connect(mqttpub.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			QoS:      cfg.MQTT.QoS,
			Retain:   cfg.MQTT.Retain != nil && *cfg.MQTT.Retain,
		})
		if err != nil {
			return nil, err
		}
		rt.mqtt = p
		sinks = append(sinks, p)
		log.WithFields(logrus.Fields{"broker": cfg.MQTT.Broker, "topic": cfg.MQTT.Topic, "client_id": p.ClientID()}).Info("mqtt enabled")
	}

	rt.svc = poller.New(poller.Config{
		Interval: g.Interval,
		Backend:  g.Backend,
		Bus:      g.Bus,
		Address:  rt.driver.Address(),
	}, rt.driver, log, sinks...)

	ok = true
	return rt, nil
}

// Run polls until ctx is done or the web server fails.
func (rt *app) Run(ctx context.Context) error {
	if err := rt.svc.Start(ctx); err != nil {
		return err
	}
	if rt.cfg.Web.Enable {
		h := web.Handler(rt.svc, rt.fixes, rt.logs, rt.log)
		rt.log.WithField("listen", rt.cfg.Web.Listen).Info("web enabled")
		return web.Serve(ctx, rt.cfg.Web.Listen, h)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (rt *app) Close() {
	if rt == nil {
		return
	}
	if rt.svc != nil {
		rt.svc.Close()
		rt.svc = nil
	}
	if rt.mqtt != nil {
		rt.mqtt.Close()
		rt.mqtt = nil
	}
	if rt.udp != nil {
		_ = rt.udp.Close()
		rt.udp = nil
	}
	if rt.driver != nil {
		_ = rt.driver.Close()
		rt.driver = nil
	}
	if rt.bus != nil {
		_ = rt.bus.Close()
		rt.bus = nil
	}
}

// readOnce is used by -once and tests.
func readOnce(ctx context.Context, d *i2cgps.Driver, timeout time.Duration) (i2cgps.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.ReadFix(ctx)
}
