package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"Jyotish/internal/services/vedic"
)

type rootOptions struct {
	reference string
	compact   bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "jyotish",
		Short:         "Vedic astrology calculations from sidereal longitudes",
		Long:          "jyotish computes Panchang, Vimshottari Dasha and Ashta Koota matching from Lahiri sidereal longitudes in degrees.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.reference, "reference", "", "Nakshatra profile file (default built-in table)")
	root.PersistentFlags().BoolVar(&opts.compact, "compact", false, "print single-line JSON")

	root.AddCommand(
		newPanchangCmd(opts),
		newDashaCmd(opts),
		newMatchCmd(opts),
		newLocateCmd(opts),
	)
	return root
}

func (o *rootOptions) table() (*vedic.ReferenceTable, error) {
	if o.reference == "" {
		return vedic.DefaultReferenceTable()
	}
	ref, err := vedic.LoadReferenceTable(o.reference)
	if err != nil {
		return nil, fmt.Errorf("load reference: %w", err)
	}
	return ref, nil
}

func (o *rootOptions) print(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	if !o.compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
