package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/angas/fmi-go/cmd/internal/textout"
	"github.com/angas/fmi-go/fmi"
	"github.com/angas/fmi-go/hours"
	"github.com/lmittmann/tint"
)

func main() {
	place := flag.String("place", "", "place name, e.g. Helsinki")
	fmisid := flag.String("fmisid", "", "observation station id, used when no place is given")
	parameters := flag.String("parameter", "temperature", "comma separated parameters")
	hoursBack := flag.Int("hours", 0, "number of hours to load")
	start := flag.String("start", "", "first date to load, YYYY-MM-DD")
	end := flag.String("end", "", "last date to load, YYYY-MM-DD")
	format := flag.String("format", "text", "output format: text or csv")
	baseURL := flag.String("url", fmi.BASE_URL, "FMI WFS endpoint")
	timeout := flag.Duration("timeout", 30*time.Second, "request timeout")
	list := flag.Bool("list", false, "list the available parameters")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: time.TimeOnly}))
	slog.SetDefault(logger)

	if *list {
		fmt.Println(strings.Join(fmi.ParameterNames(fmi.KindObservation), "\n"))
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	client := fmi.New(*baseURL, *timeout)
	client.SetLogger(logger.With("module", "fmi"))

	t, err := client.GetObservations(ctx, fmi.ObservationQuery{
		Location:   fmi.Location{Place: *place, Fmisid: *fmisid},
		Parameters: strings.Split(*parameters, ","),
		Hours:      *hoursBack,
		StartDate:  *start,
		EndDate:    *end,
	})
	if err != nil {
		logger.Error("failed to get observations", slog.Any("error", err))
		os.Exit(1)
	}

	switch *format {
	case "csv":
		err = t.WriteCSV(os.Stdout)
	default:
		err = textout.Write(os.Stdout, t, hours.LocationHelsinki)
	}
	if err != nil {
		logger.Error("failed to write observations", slog.Any("error", err))
		os.Exit(1)
	}
}
