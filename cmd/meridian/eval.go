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
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/gopacket/gopacket/pcapgo"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/meridian-sdn/meridian/pkg/log"
	"github.com/meridian-sdn/meridian/pkg/netpol"
	"github.com/meridian-sdn/meridian/pkg/packet"
	"github.com/meridian-sdn/meridian/pkg/private/serrors"
	"github.com/meridian-sdn/meridian/pkg/topology"
)

func newEval() *cobra.Command {
	var flags struct {
		topology     string
		policy       string
		pcap         string
		sw           int
		inport       int
		trace        bool
		format       string
		logLevel     string
		prefixFields []string
	}

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a policy over captured frames",
		Long: `'eval' loads a policy from a JSON file and evaluates it against every
Ethernet frame of a capture file. Each frame is decoded into a header
field packet, placed at the given network location, and run through the
policy; the resulting output packets are listed per frame.

A topology file provides the network state consumed by location
predicates and flooding.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := log.Setup(log.Config{Level: flags.logLevel, Console: true}); err != nil {
				return serrors.Wrap("setting up logging", err)
			}
			defer log.Flush()
			cmd.SilenceUsage = true

			for _, f := range flags.prefixFields {
				netpol.RegisterField(f, netpol.PrefixPattern)
			}

			policy, err := loadPolicy(flags.policy)
			if err != nil {
				return err
			}
			if flags.topology != "" {
				network, err := loadNetwork(flags.topology)
				if err != nil {
					return err
				}
				policy.SetNetwork(network)
			}

			frames, err := readFrames(flags.pcap)
			if err != nil {
				return err
			}
			log.Debug("Loaded capture", "path", flags.pcap, "frames", len(frames))

			var results []evalResult
			for i, frame := range frames {
				pkt, err := packet.FromEthernet(frame)
				if err != nil {
					log.Info("Skipping undecodable frame", "frame", i, "err", err)
					continue
				}
				pkt = pkt.PushMany(map[string]any{
					netpol.FieldSwitch:  flags.sw,
					netpol.FieldInport:  flags.inport,
					netpol.FieldOutport: netpol.UnsetPort,
				})
				r := evalResult{Frame: i, Input: pkt.String()}
				if flags.trace {
					out, tr := policy.TrackEval(pkt)
					r.Trace = tr.String()
					r.fill(out)
				} else {
					r.fill(policy.Eval(pkt))
				}
				results = append(results, r)
			}

			switch flags.format {
			case "human":
				renderEval(cmd.OutOrStdout(), results, flags.trace)
				return nil
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			default:
				return serrors.New("output format not supported", "format", flags.format)
			}
		},
	}

	cmd.Flags().StringVar(&flags.topology, "topology", "", "Topology TOML file")
	cmd.Flags().StringVar(&flags.policy, "policy", "", "Policy JSON file (required)")
	cmd.Flags().StringVar(&flags.pcap, "pcap", "", "Packet capture file (required)")
	cmd.Flags().IntVar(&flags.sw, "switch", 1, "Switch the frames arrive at")
	cmd.Flags().IntVar(&flags.inport, "inport", 1, "Port the frames arrive on")
	cmd.Flags().BoolVar(&flags.trace, "trace", false, "Record evaluation traces")
	cmd.Flags().StringVar(&flags.format, "format", "human",
		"Specify the output format (human|json)")
	cmd.Flags().StringVar(&flags.logLevel, "log.level", "", "Log level (debug|info|error)")
	cmd.Flags().StringSliceVar(&flags.prefixFields, "prefix-field", nil,
		"Additional fields matched by IPv4 prefix")
	for _, f := range []string{"policy", "pcap"} {
		if err := cmd.MarkFlagRequired(f); err != nil {
			panic(err)
		}
	}
	return cmd
}

type evalResult struct {
	Frame   int      `json:"frame"`
	Input   string   `json:"input"`
	Outputs []string `json:"outputs"`
	Total   int      `json:"total"`
	Trace   string   `json:"trace,omitempty"`
}

func (r *evalResult) fill(out netpol.Multiset) {
	r.Total = out.Total()
	out.Each(func(p packet.Packet, n int) {
		s := p.String()
		if n > 1 {
			s = fmt.Sprintf("%s x%d", s, n)
		}
		r.Outputs = append(r.Outputs, s)
	})
}

func renderEval(w io.Writer, results []evalResult, withTrace bool) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Frame", "Input", "Outputs", "Total"})
	table.SetAutoWrapText(false)
	for _, r := range results {
		outputs := "-"
		if len(r.Outputs) > 0 {
			outputs = r.Outputs[0]
			for _, o := range r.Outputs[1:] {
				outputs += "\n" + o
			}
		}
		table.Append([]string{strconv.Itoa(r.Frame), r.Input, outputs, strconv.Itoa(r.Total)})
	}
	table.Render()
	if withTrace {
		for _, r := range results {
			if _, err := io.WriteString(w, r.Trace); err != nil {
				return
			}
		}
	}
}

func loadPolicy(path string) (netpol.Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, serrors.Wrap("reading policy file", err, "path", path)
	}
	policy, err := netpol.UnmarshalPolicy(raw)
	if err != nil {
		return nil, serrors.Wrap("parsing policy file", err, "path", path)
	}
	return policy, nil
}

func loadNetwork(path string) (*topology.Network, error) {
	topo, err := topology.Load(path)
	if err != nil {
		return nil, err
	}
	return topology.NewNetwork(topo), nil
}

func readFrames(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, serrors.Wrap("opening capture file", err, "path", path)
	}
	defer f.Close()
	r, err := pcapgo.NewReader(f)
	if err != nil {
		return nil, serrors.Wrap("reading capture header", err, "path", path)
	}
	var frames [][]byte
	for {
		data, _, err := r.ReadPacketData()
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return nil, serrors.Wrap("reading capture frame", err,
				"path", path, "frame", len(frames))
		}
		frame := make([]byte, len(data))
		copy(frame, data)
		frames = append(frames, frame)
	}
}
