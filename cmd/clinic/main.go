package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/clinic-store/internal/config"
	"github.com/jwalitptl/clinic-store/internal/model"
	"github.com/jwalitptl/clinic-store/internal/repository/sqlite"
	"github.com/jwalitptl/clinic-store/internal/service/reception"
	apperrors "github.com/jwalitptl/clinic-store/pkg/errors"
	"github.com/jwalitptl/clinic-store/pkg/logger"
	"github.com/jwalitptl/clinic-store/pkg/metrics"
)

func main() {
	configFile := flag.String("config", "", "path to config.yaml")
	seed := flag.Bool("seed", false, "load demo staff, patients and appointments")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		JSON:       cfg.Log.JSON,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *seed); err != nil {
		log.Fatal(err, "clinic store failed")
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, seed bool) error {
	loc, err := cfg.Store.Location()
	if err != nil {
		return err
	}

	// Initialize metrics
	m := metrics.New(cfg.Metrics.Namespace)
	if err := m.Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}

	// Initialize database
	db, err := sqlite.NewDB(ctx, cfg.Store, log)
	if err != nil {
		return err
	}
	defer db.Close()

	store := sqlite.NewStore(db,
		sqlite.WithLogger(log),
		sqlite.WithMetrics(m),
		sqlite.WithLocation(loc),
		sqlite.WithEmployeeCache(cache.New(cfg.Store.CacheTTL, cfg.Store.CacheCleanup)),
	)
	svc := reception.NewService(store.Employees, store.Patients, store.Appointments, store, log)

	if seed {
		if err := seedDemo(ctx, svc, loc); err != nil {
			return err
		}
	}

	return report(ctx, svc, loc)
}

func seedDemo(ctx context.Context, svc *reception.Service, loc *time.Location) error {
	staff := []model.Employee{
		model.NewDoctor("Alice Moreau", "1001"),
		model.NewDoctor("Bruno Keller", "1002"),
		model.NewNurse("Carol Diaz", "2001"),
		model.NewReceptionist("Dave Okafor", "3001", "front"),
	}
	for _, e := range staff {
		if err := svc.HireEmployee(ctx, e); err != nil && !apperrors.IsConflict(err) {
			return err
		}
	}

	today := time.Now().In(loc)
	at := func(days, hour int) time.Time {
		return time.Date(today.Year(), today.Month(), today.Day()+days, hour, 0, 0, 0, loc)
	}
	bookings := []reception.BookingRequest{
		{Type: model.AppointmentTypeCheckup, EmployeeNumber: "1001", Patient: model.NewPatient("Bob", "Smith", "1 Main St", "555-0100"), Date: at(0, 9)},
		{Type: model.AppointmentTypeConsultation, EmployeeNumber: "1002", Patient: model.NewPatient("Ann", "Lee", "4 Oak Ave", "555-0142"), Date: at(0, 11)},
		{Type: model.AppointmentTypeFollowUp, EmployeeNumber: "2001", Patient: model.NewPatient("Bob", "Smith", "1 Main St", "555-0100"), Date: at(1, 10)},
	}
	for _, b := range bookings {
		if _, err := svc.BookAppointment(ctx, b); err != nil && !apperrors.IsConflict(err) {
			return err
		}
	}
	return nil
}

func report(ctx context.Context, svc *reception.Service, loc *time.Location) error {
	days, err := svc.Days(ctx)
	if err != nil {
		return err
	}
	if len(days) == 0 {
		fmt.Println("no appointments")
		return nil
	}

	for _, d := range days {
		day, err := time.ParseInLocation("02-01-2006", d, loc)
		if err != nil {
			return fmt.Errorf("failed to parse day %q: %w", d, err)
		}
		agenda, err := svc.StaffAgenda(ctx, day)
		if err != nil {
			return err
		}
		fmt.Println(d)
		for _, a := range agenda {
			fmt.Printf("  %s\n", a)
		}
	}
	return nil
}
