// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/bitmark-inc/exitwithstatus"

	"github.com/bitmark-inc/tangled/storage"
)

// setup command handler
//
// commands that need neither the configuration file nor the database
func processSetupCommand(program string, arguments []string) bool {

	command := "help"
	if len(arguments) > 0 {
		command = arguments[0]
	}

	switch command {

	case "start", "run":
		return false // continue processing

	case "config-test", "cfg", "health", "count":
		return false // need configuration

	case "version", "v":
		fmt.Printf("%s\n", version)

	default:
		switch command {
		case "help", "h", "?":
		case "", " ":
			fmt.Printf("error: missing command\n")
		default:
			fmt.Printf("error: no such command: %q\n", command)
		}
		fmt.Printf("usage: %s [--help] [--verbose] [--quiet] --config-file=FILE [[command|help] arguments...]", program)

		fmt.Printf("supported commands:\n\n")
		fmt.Printf("  help                       (h)      - display this message\n\n")
		fmt.Printf("  version                    (v)      - display version sting\n\n")

		fmt.Printf("  start                      (run)    - just run the program, same as no arguments\n")
		fmt.Printf("                                        for convienience when passing script arguments\n")
		fmt.Printf("\n")

		fmt.Printf("  config-test                (cfg)    - just check the configuration file\n")
		fmt.Printf("\n")

		fmt.Printf("  health                              - display the storage health and version\n")
		fmt.Printf("\n")

		fmt.Printf("  count                               - display the number of stored records\n")
		fmt.Printf("\n")

		exitwithstatus.Exit(1)
	}

	// indicate processing complete and perform normal exit from main
	return true
}

// configuration file enquiry commands
// have configuration file read and decoded, but nothing else
func processConfigCommand(arguments []string, options *Configuration) bool {

	command := "help"
	if len(arguments) > 0 {
		command = arguments[0]
	}

	switch command {
	case "config-test", "cfg":
		b, err := json.Marshal(options)
		if err != nil {
			exitwithstatus.Message("error: %s", err)
		}
		var out bytes.Buffer
		json.Indent(&out, b, "", "  ")
		out.WriteTo(os.Stdout)
		os.Stdout.WriteString("\n")

	default: // unknown commands fall through to data command
		return false
	}

	// indicate processing complete and perform normal exit from main
	return true
}

// data command handler
// the store is open but not validated, so these commands also work
// on a store left corrupted by an unclean exit
func processDataCommand(arguments []string, backend storage.Backend) bool {

	command := "help"
	if len(arguments) > 0 {
		command = arguments[0]
	}

	switch command {

	case "start", "run":
		return false // continue processing

	case "health":
		health, found, err := backend.Health()
		if nil != err {
			exitwithstatus.Message("health error: %s", err)
		}
		version, versionFound, err := backend.Version()
		if nil != err {
			exitwithstatus.Message("version error: %s", err)
		}
		if !found || !versionFound {
			fmt.Printf("empty store\n")
			break
		}
		fmt.Printf("health:  %s\n", health)
		fmt.Printf("version: %d (current: %d)\n", version, storage.CurrentVersion)

	case "count":
		tables := []struct {
			name   string
			handle storage.Handle
		}{
			{"messages", backend.Messages()},
			{"metadata", backend.Metadata()},
			{"children", backend.Children()},
		}
		for _, table := range tables {
			n, err := countRecords(table.handle)
			if nil != err {
				exitwithstatus.Message("count: %s  error: %s", table.name, err)
			}
			fmt.Printf("%-9s %d\n", table.name+":", n)
		}

	default:
		return false
	}

	// indicate processing complete and perform normal exit from main
	return true
}

func countRecords(handle storage.Handle) (int, error) {
	n := 0
	err := handle.Map(nil, func(key []byte, value []byte) error {
		n += 1
		return nil
	})
	return n, err
}
