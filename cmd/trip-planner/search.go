package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/txn2/trip-planner/pkg/client"
	"github.com/txn2/trip-planner/pkg/flight"
)

type searchOptions struct {
	serverURL   string
	origin      string
	destination string
	date        string
	returnDate  string
	adults      int
	cabin       string
	interval    time.Duration
	timeout     time.Duration
	limit       int
}

func newSearchCmd() *cobra.Command {
	opts := searchOptions{}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a flight search against a server and print the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSearch(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.serverURL, "server", "http://localhost:8080", "Base URL of the search service")
	f.StringVar(&opts.origin, "from", "", "Origin IATA code")
	f.StringVar(&opts.destination, "to", "", "Destination IATA code")
	f.StringVar(&opts.date, "date", "", "Outbound date (YYYY-MM-DD)")
	f.StringVar(&opts.returnDate, "return", "", "Return date (YYYY-MM-DD), omit for one-way")
	f.IntVar(&opts.adults, "adults", 1, "Number of adult passengers")
	f.StringVar(&opts.cabin, "cabin", string(flight.CabinEconomy), "Cabin: economy, premium_economy, business, first")
	f.DurationVar(&opts.interval, "interval", client.DefaultInterval, "Delay between polls")
	f.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Give up after this long")
	f.IntVar(&opts.limit, "limit", 10, "Maximum itineraries to print, 0 for all")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func (o searchOptions) query() flight.Query {
	q := flight.OneWay(o.origin, o.destination, o.date)
	if o.returnDate != "" {
		q = flight.Return(o.origin, o.destination, o.date, o.returnDate)
	}
	q.Adults = o.adults
	q.Cabin = flight.Cabin(o.cabin)
	return q
}

func runSearch(ctx context.Context, opts searchOptions, out, progress io.Writer) error {
	c, err := client.New(opts.serverURL, &http.Client{Timeout: 30 * time.Second})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	poller := client.NewPoller(c, client.PollerConfig{
		Interval: opts.interval,
		OnUpdate: func(v client.View) {
			_, _ = fmt.Fprintf(progress, "%s %s-%s: %d%%, %d itineraries\n",
				v.State, v.Origin, v.Destination, v.Progress, len(v.Itineraries))
		},
	})

	view, err := poller.Run(ctx, opts.query())
	if len(view.Itineraries) > 0 {
		printItineraries(out, view.Itineraries, opts.limit)
	}
	if err != nil {
		return fmt.Errorf("search %s: %w", view.State, err)
	}
	if view.State == client.StateError {
		return fmt.Errorf("search failed: %s", view.Error)
	}
	return nil
}

func printItineraries(w io.Writer, its []flight.Itinerary, limit int) {
	if limit > 0 && len(its) > limit {
		its = its[:limit]
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PRICE\tDEPART\tARRIVE\tDURATION\tSTOPS\tCARRIERS")
	for _, it := range its {
		if len(it.Legs) == 0 {
			continue
		}
		first, last := it.Legs[0], it.Legs[len(it.Legs)-1]
		stops := 0
		minutes := 0
		var carriers []string
		for _, leg := range it.Legs {
			stops += leg.StopCount
			minutes += leg.DurationMinutes
			carriers = append(carriers, leg.Carriers...)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			formatPrice(it.Price),
			first.Departure.Format("Jan 02 15:04"),
			last.Arrival.Format("Jan 02 15:04"),
			(time.Duration(minutes) * time.Minute).String(),
			stops,
			strings.Join(carriers, ","),
		)
	}
	_ = tw.Flush()
}

func formatPrice(p flight.Price) string {
	return fmt.Sprintf("%d.%02d %s", p.Amount/100, p.Amount%100, p.Currency)
}
