/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/huginn_dj/internal/catalog"
	"github.com/friendsincode/huginn_dj/internal/compat"
	"github.com/friendsincode/huginn_dj/internal/logging"
	"github.com/friendsincode/huginn_dj/internal/profile"
	"github.com/friendsincode/huginn_dj/internal/session"
)

var (
	simulateCatalog  string
	simulateProfile  string
	simulateProfiles string
	simulateMinutes  int
	simulateSeed     int64
	simulateVerbose  bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run an offline session over a catalog file",
	Long: `Run a full DJ session against a JSON catalog file without the server.

The session clock is simulated: each pick advances virtual time by the
track duration, so a whole evening plays out in milliseconds. With the
same --seed and catalog, the set list is reproducible.

Examples:
  # Four hours over the default club profile
  huginndj simulate --catalog tracks.json

  # Reproducible lounge evening
  huginndj simulate --catalog tracks.json --profile lounge --seed 42 --minutes 180
`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&simulateCatalog, "catalog", "", "JSON catalog file with analyzed tracks (required)")
	simulateCmd.Flags().StringVar(&simulateProfile, "profile", "club", "Session profile to run")
	simulateCmd.Flags().StringVar(&simulateProfiles, "profiles", "", "Optional YAML file overriding the built-in profiles")
	simulateCmd.Flags().IntVar(&simulateMinutes, "minutes", 0, "Session length in minutes (0 = profile default)")
	simulateCmd.Flags().Int64Var(&simulateSeed, "seed", 0, "Random seed (0 = time-seeded)")
	simulateCmd.Flags().BoolVar(&simulateVerbose, "verbose", false, "Print the shortlist for every pick")
	_ = simulateCmd.MarkFlagRequired("catalog")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	// Simulation is fully offline; it needs no server configuration.
	logger = logging.Setup("development")

	provider, err := catalog.LoadFile(simulateCatalog, logger)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	profiles := profile.NewStore()
	if simulateProfiles != "" {
		if err := profiles.LoadFile(simulateProfiles); err != nil {
			return fmt.Errorf("load profiles: %w", err)
		}
	}
	settings, ok := profiles.Get(simulateProfile)
	if !ok {
		return fmt.Errorf("unknown profile %q (available: %v)", simulateProfile, profiles.Names())
	}
	if simulateMinutes > 0 {
		settings.SessionLengthMinutes = simulateMinutes
	}

	scorer, err := compat.New(compat.DefaultWeights())
	if err != nil {
		return err
	}

	var engine *session.Engine
	if simulateSeed != 0 {
		engine, err = session.NewSeeded(scorer, settings, simulateSeed, logger)
	} else {
		engine, err = session.New(scorer, settings, logger)
	}
	if err != nil {
		return err
	}

	// Virtual clock: each pick advances time by the track's duration so
	// phase progression follows the simulated set, not the wall clock.
	now := time.Now()
	engine.SetClock(func() time.Time { return now })

	tracks, err := provider.PlaylistTracks(cmd.Context(), "all")
	if err != nil {
		return err
	}

	sel, err := engine.Start(tracks)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	fmt.Printf("Simulating %q: %d tracks, %d minutes, peak hour %02d:00\n\n",
		simulateProfile, len(tracks), settings.SessionLengthMinutes, settings.PeakHour)

	end := now.Add(time.Duration(settings.SessionLengthMinutes) * time.Minute)
	for {
		printSelection(sel, now)
		now = now.Add(trackLength(sel))
		if !now.Before(end) {
			break
		}

		sel, err = engine.Next()
		if errors.Is(err, session.ErrExhausted) {
			fmt.Println("\npool exhausted, ending set early")
			break
		}
		if err != nil {
			return err
		}
	}

	record, err := engine.End()
	if err != nil {
		return err
	}
	stats := session.RecordStats(record)

	fmt.Printf("\nSet complete: %d tracks in %.0f minutes\n", stats.TracksPlayed, stats.ElapsedMinutes)
	fmt.Printf("  avg energy %.2f, %d key changes, %d skips\n", stats.AverageEnergy, stats.KeyChanges, stats.Skips)
	for phase, n := range stats.PhaseCounts {
		fmt.Printf("  %-8s %d tracks\n", phase, n)
	}
	return nil
}

func printSelection(sel session.Selection, at time.Time) {
	name := sel.Track.Name
	if name == "" {
		name = sel.Track.ID
	}
	fmt.Printf("%3d. [%s] %-8s %-40s %.0f BPM  energy %.2f  score %.3f\n",
		sel.Position, at.Format("15:04"), sel.Phase, name,
		sel.Track.Features.Tempo, sel.Track.Features.Energy, sel.Score.Overall)

	if simulateVerbose {
		for _, c := range sel.Shortlist {
			alt := c.Track.Name
			if alt == "" {
				alt = c.Track.ID
			}
			fmt.Printf("       · %-40s adjusted %.3f\n", alt, c.Adjusted)
		}
	}
}

// trackLength falls back to a four minute default when the catalog has no
// duration metadata.
func trackLength(sel session.Selection) time.Duration {
	if ms := sel.Track.Features.DurationMS; ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return 4 * time.Minute
}
