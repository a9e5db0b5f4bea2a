// Copyright 2025 the original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package info implements the "osmio info" command.
package info

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"m4o.io/osmio"
	"m4o.io/osmio/cmd/osmio/cli"
	"m4o.io/osmio/mem"
	"m4o.io/osmio/model"
)

var out io.Writer = os.Stdout

type extendedHeader struct {
	model.Header

	NodeCount      int64
	WayCount       int64
	RelationCount  int64
	ChangesetCount int64
}

func init() {
	cli.RootCmd.AddCommand(infoCmd)

	flags := infoCmd.Flags()
	flags.BoolP("json", "j", false, "format information in JSON")
	flags.BoolP("extended", "e", false, "provide extended information (scans entire file)")
}

var infoCmd = &cobra.Command{
	Use:   "info <OSM file>",
	Short: "Print information about an OSM file",
	Long:  "Print header information about an OSM file, optionally with object counts",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		file, err := osmio.ParseFile(args[0])
		if err != nil {
			log.Fatal(err)
		}

		f, err := os.Open(file.Name)
		if err != nil {
			log.Fatal(err)
		}

		in, err := cli.WrapInputFile(f)
		if err != nil {
			log.Fatal(err)
		}

		flags := cmd.Flags()

		extended, err := flags.GetBool("extended")
		if err != nil {
			log.Fatal(err)
		}

		info := runInfo(file, in, extended)

		if err := in.Close(); err != nil {
			log.Fatal(err)
		}

		jsonfmt, err := flags.GetBool("json")
		if err != nil {
			log.Fatal(err)
		}

		if jsonfmt {
			renderJSON(info, extended)
		} else {
			renderTxt(info, extended)
		}
	},
}

// counter tallies objects by kind while the file streams through.
type counter struct {
	mem.NoopHandler

	info *extendedHeader
}

func (c *counter) Node(mem.Node) error           { c.info.NodeCount++; return nil }
func (c *counter) Way(mem.Way) error             { c.info.WayCount++; return nil }
func (c *counter) Relation(mem.Relation) error   { c.info.RelationCount++; return nil }
func (c *counter) Changeset(mem.Changeset) error { c.info.ChangesetCount++; return nil }

func runInfo(file osmio.File, in io.Reader, extended bool) *extendedHeader {
	r, err := osmio.NewReaderFrom(file, in)
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	info := &extendedHeader{Header: *r.Header()}

	if extended {
		if err := r.ApplyAll(&counter{info: info}); err != nil {
			log.Fatal(err)
		}
	}

	return info
}

func renderJSON(info *extendedHeader, extended bool) {
	// marshal the smallest struct needed
	var v interface{}
	if extended {
		v = info
	} else {
		v = info.Header
	}

	b, err := json.Marshal(v)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Fprint(out, string(b))
}

func renderTxt(info *extendedHeader, extended bool) {
	if box := info.BoundingBox(); box != nil {
		fmt.Fprintf(out, "BoundingBox: %s\n", box)
	}

	fmt.Fprintf(out, "RequiredFeatures: %s\n", strings.Join(info.RequiredFeatures, ", "))
	fmt.Fprintf(out, "OptionalFeatures: %s\n", strings.Join(info.OptionalFeatures, ", "))
	fmt.Fprintf(out, "WritingProgram: %s\n", info.WritingProgram)
	fmt.Fprintf(out, "Source: %s\n", info.Source)

	if !info.OsmosisReplicationTimestamp.IsZero() {
		fmt.Fprintf(out, "OsmosisReplicationTimestamp: %s\n", info.OsmosisReplicationTimestamp.UTC().Format(time.RFC3339))
		fmt.Fprintf(out, "OsmosisReplicationSequenceNumber: %d\n", info.OsmosisReplicationSequenceNumber)
		fmt.Fprintf(out, "OsmosisReplicationBaseURL: %s\n", info.OsmosisReplicationBaseURL)
	}

	if extended {
		fmt.Fprintf(out, "NodeCount: %s\n", humanize.Comma(info.NodeCount))
		fmt.Fprintf(out, "WayCount: %s\n", humanize.Comma(info.WayCount))
		fmt.Fprintf(out, "RelationCount: %s\n", humanize.Comma(info.RelationCount))
		fmt.Fprintf(out, "ChangesetCount: %s\n", humanize.Comma(info.ChangesetCount))
	}
}
