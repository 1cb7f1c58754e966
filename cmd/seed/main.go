package main

import (
	"context"
	"flag"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/parking-slot-reservation/internal/config"
	"github.com/iliyamo/parking-slot-reservation/internal/database"
	"github.com/iliyamo/parking-slot-reservation/internal/layout"
	"github.com/iliyamo/parking-slot-reservation/internal/logger"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
)

func main() {
	path := flag.String("layout", "configs/slots.toml", "slot layout file (TOML)")
	reset := flag.Bool("reset", false, "delete all free slots before seeding")
	flag.Parse()
	config.LoadDotEnv()

	log := logger.New(config.EnvStr("APP_ENV", "dev"), config.EnvStr("LOG_LEVEL", "info"))

	l, err := layout.Load(*path)
	if err != nil {
		log.WithError(err).Fatal("load layout")
	}
	slots, err := l.Slots()
	if err != nil {
		log.WithError(err).Fatal("invalid layout")
	}

	db, err := database.Open(
		config.MustEnv("DB_USER"), config.EnvStr("DB_PASS", ""), config.MustEnv("DB_HOST"),
		config.EnvStr("DB_PORT", "3306"), config.MustEnv("DB_NAME"))
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	repo := repository.NewSlotRepo(db)
	err = database.NewTxManager(db).Do(ctx, func(ctx context.Context) error {
		if *reset {
			n, err := repo.DeleteFree(ctx)
			if err != nil {
				return err
			}
			log.WithField("deleted", n).Info("free slots cleared")
		}
		n, err := repo.InsertBulk(ctx, slots)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"slots": len(slots), "rows": n}).Info("slots seeded")
		return nil
	})
	if err != nil {
		log.WithError(err).Fatal("seed slots")
	}
}
