// Copyright 2026 Meridian Networks
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"os"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/meridian-sdn/meridian/pkg/log"
	"github.com/meridian-sdn/meridian/pkg/netpol"
	"github.com/meridian-sdn/meridian/pkg/packet"
	"github.com/meridian-sdn/meridian/pkg/private/serrors"
)

func newClasses() *cobra.Command {
	var flags struct {
		classes  string
		pcap     string
		logLevel string
	}

	cmd := &cobra.Command{
		Use:   "classes",
		Short: "Classify captured frames against named traffic classes",
		Long: `'classes' loads a JSON file of named predicates and counts, for every
class, how many frames of the capture match it. Without a capture file
the classes are only parsed and listed, which validates the file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := log.Setup(log.Config{Level: flags.logLevel, Console: true}); err != nil {
				return serrors.Wrap("setting up logging", err)
			}
			defer log.Flush()
			cmd.SilenceUsage = true

			raw, err := os.ReadFile(flags.classes)
			if err != nil {
				return serrors.Wrap("reading classes file", err, "path", flags.classes)
			}
			var classes netpol.PredicateMap
			if err := json.Unmarshal(raw, &classes); err != nil {
				return serrors.Wrap("parsing classes file", err, "path", flags.classes)
			}

			names := make([]string, 0, len(classes))
			for name := range classes {
				names = append(names, name)
			}
			sort.Strings(names)

			counts := make(map[string]int, len(classes))
			total := 0
			if flags.pcap != "" {
				frames, err := readFrames(flags.pcap)
				if err != nil {
					return err
				}
				for i, frame := range frames {
					pkt, err := packet.FromEthernet(frame)
					if err != nil {
						log.Info("Skipping undecodable frame", "frame", i, "err", err)
						continue
					}
					total++
					for _, name := range names {
						if classes[name].Eval(pkt) {
							counts[name]++
						}
					}
				}
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			if flags.pcap != "" {
				table.SetHeader([]string{"Class", "Predicate", "Matches"})
			} else {
				table.SetHeader([]string{"Class", "Predicate"})
			}
			table.SetAutoWrapText(false)
			for _, name := range names {
				row := []string{name, classes[name].String()}
				if flags.pcap != "" {
					row = append(row, strconv.Itoa(counts[name]))
				}
				table.Append(row)
			}
			table.Render()
			if flags.pcap != "" {
				log.Info("Classified capture", "frames", total, "classes", len(classes))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.classes, "classes", "", "Traffic class JSON file (required)")
	cmd.Flags().StringVar(&flags.pcap, "pcap", "", "Packet capture file")
	cmd.Flags().StringVar(&flags.logLevel, "log.level", "", "Log level (debug|info|error)")
	if err := cmd.MarkFlagRequired("classes"); err != nil {
		panic(err)
	}
	return cmd
}
