// One-shot exchange rate refresh, intended to run from a daily cron.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/networth-labs/tracker/internal/config"
	"github.com/networth-labs/tracker/internal/logger"
	"github.com/networth-labs/tracker/internal/rates"
	"github.com/networth-labs/tracker/internal/store/gormstore"
)

func main() {
	log := logger.New()

	base := flag.String("base", "", "base currency (defaults to RATES_BASE or USD)")
	flag.Parse()

	cfg := config.Load()
	if *base != "" {
		cfg.RatesBase = *base
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	if cfg.MySQLDSN == "" {
		log.Fatal().Msg("MYSQL_DSN is required: refreshed rates have nowhere to go without a store")
	}
	st, err := gormstore.Open(cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MySQL")
	}
	defer st.Close()

	svc := rates.NewService(rates.NewFetcher(nil, cfg.RatesURL), st, st, cfg.RatesBase)

	res, err := svc.Refresh(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Rate refresh failed")
	}

	fmt.Printf("Stored %d rate(s) against %s for %s (%d new currencies).\n",
		res.Rates, res.Base, res.Day, res.NewCurrencies)
}
