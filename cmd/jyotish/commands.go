package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"Jyotish/internal/services/vedic"
)

func newPanchangCmd(opts *rootOptions) *cobra.Command {
	var sun, moon float64
	cmd := &cobra.Command{
		Use:   "panchang",
		Short: "Tithi, Paksha, Nakshatra, Yoga and Karana from Sun and Moon longitudes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.print(cmd.OutOrStdout(), vedic.ComputePanchang(sun, moon))
		},
	}
	cmd.Flags().Float64Var(&sun, "sun", 0, "sidereal Sun longitude in degrees")
	cmd.Flags().Float64Var(&moon, "moon", 0, "sidereal Moon longitude in degrees")
	_ = cmd.MarkFlagRequired("sun")
	_ = cmd.MarkFlagRequired("moon")
	return cmd
}

func newDashaCmd(opts *rootOptions) *cobra.Command {
	var (
		moon  float64
		date  string
		clock string
	)
	cmd := &cobra.Command{
		Use:   "dasha",
		Short: "Vimshottari Dasha schedule from the birth Moon longitude",
		RunE: func(cmd *cobra.Command, args []string) error {
			birth, err := time.Parse("2006-01-02 15:04", date+" "+clock)
			if err != nil {
				return fmt.Errorf("birth date/time: %w", err)
			}
			return opts.print(cmd.OutOrStdout(), vedic.VimshottariDasha(moon, birth))
		},
	}
	cmd.Flags().Float64Var(&moon, "moon", 0, "sidereal birth Moon longitude in degrees")
	cmd.Flags().StringVar(&date, "date", "", "birth date, YYYY-MM-DD")
	cmd.Flags().StringVar(&clock, "time", "12:00", "birth time, HH:MM")
	_ = cmd.MarkFlagRequired("moon")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newMatchCmd(opts *rootOptions) *cobra.Command {
	var boy, girl float64
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Ashta Koota (Guna Milan) score out of 36",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := opts.table()
			if err != nil {
				return err
			}
			res, err := vedic.GunaMilan(ref, boy, girl)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().Float64Var(&boy, "boy", 0, "boy's sidereal birth Moon longitude")
	cmd.Flags().Float64Var(&girl, "girl", 0, "girl's sidereal birth Moon longitude")
	_ = cmd.MarkFlagRequired("boy")
	_ = cmd.MarkFlagRequired("girl")
	return cmd
}

func newLocateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "locate <longitude>",
		Short: "Nakshatra, pada and sign of a longitude",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lon, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("longitude must be a number, got %q", args[0])
			}
			return opts.print(cmd.OutOrStdout(), vedic.Locate(lon))
		},
	}
}
