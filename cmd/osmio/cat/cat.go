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

// Package cat implements the "osmio cat" command, which copies OSM data
// between files, converting formats along the way.
package cat

import (
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"m4o.io/osmio"
	"m4o.io/osmio/cmd/osmio/cli"
)

func init() {
	cli.RootCmd.AddCommand(catCmd)
}

var catCmd = &cobra.Command{
	Use:   "cat <input file> <output file>",
	Short: "Copy an OSM file, converting between formats",
	Long: "Copy the contents of an OSM file into a new file. Formats and " +
		"compression are derived from the file suffixes, so this converts " +
		"between XML, osmChange, and PBF.",
	Args: cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		inFile, err := osmio.ParseFile(args[0])
		if err != nil {
			log.Fatal(err)
		}

		f, err := os.Open(inFile.Name)
		if err != nil {
			log.Fatal(err)
		}

		in, err := cli.WrapInputFile(f)
		if err != nil {
			log.Fatal(err)
		}

		r, err := osmio.NewReaderFrom(inFile, in)
		if err != nil {
			log.Fatal(err)
		}

		w, err := osmio.NewWriter(args[1], r.Header())
		if err != nil {
			log.Fatal(err)
		}

		for {
			buf, err := r.Read()
			if err == io.EOF {
				break
			} else if err != nil {
				log.Fatal(err)
			}

			if err := w.Write(buf); err != nil {
				log.Fatal(err)
			}
		}

		if err := w.Close(); err != nil {
			log.Fatal(err)
		}

		if err := r.Close(); err != nil {
			log.Fatal(err)
		}

		if err := in.Close(); err != nil {
			log.Fatal(err)
		}
	},
}
