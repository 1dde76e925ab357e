/*
 * Copyright 2025 National Library of Norway.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *       http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cmd

import (
	"fmt"
	"os"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	log "github.com/sirupsen/logrus"

	"github.com/nlnwa/cdxj/cmd/cdxj/cmd/addfield"
	"github.com/nlnwa/cdxj/cmd/cdxj/cmd/blocklist"
	"github.com/nlnwa/cdxj/cmd/cdxj/cmd/excessive"
	"github.com/nlnwa/cdxj/cmd/cdxj/cmd/merge"
	"github.com/nlnwa/cdxj/cmd/cdxj/cmd/search"
	"github.com/nlnwa/cdxj/cmd/cdxj/cmd/zipnum"
)

type conf struct {
	cfgFile string
	verbose bool
	quiet   bool
}

// NewCommand returns a new cobra.Command implementing the root command for cdxj
func NewCommand() *cobra.Command {
	c := &conf{}
	cmd := &cobra.Command{
		Use:   "cdxj",
		Short: "Tools for merging, filtering, packing and searching CDXJ capture indexes",
		Long: `cdxj processes web archive capture indexes in the CDXJ format:
sorted lines of "<surt> <timestamp> <json>".

It merges sorted index files, filters them against blocklists and
excessive URL sets, annotates the JSON payload, packs sorted streams
into ZipNum shard sets and binary-searches both flat files and shard
sets by URL or SURT key.`,
	}

	cobra.OnInitialize(func() { c.init() })

	cmd.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default is $HOME/.cdxj.yaml)")
	cmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging on stderr")
	cmd.PersistentFlags().BoolVarP(&c.quiet, "quiet", "q", false, "log only warnings and errors")

	cmd.AddCommand(merge.NewCommand())
	cmd.AddCommand(blocklist.NewCommand())
	cmd.AddCommand(excessive.NewCommand())
	cmd.AddCommand(addfield.NewCommand())
	cmd.AddCommand(zipnum.NewEncodeCommand())
	cmd.AddCommand(zipnum.NewDecodeCommand())
	cmd.AddCommand(search.NewCommand())

	return cmd
}

// init reads in config file and ENV variables if set, and wires the log level.
func (c *conf) init() {
	log.SetOutput(os.Stderr)
	switch {
	case c.verbose:
		log.SetLevel(log.DebugLevel)
	case c.quiet:
		log.SetLevel(log.WarnLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}

	if c.cfgFile != "" {
		viper.SetConfigFile(c.cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".cdxj")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.Debugf("using config file: %s", viper.ConfigFileUsed())
	}
}
