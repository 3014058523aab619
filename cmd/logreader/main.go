package main

import (
	"flag"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"swearena-api/pkg/arena"
	"swearena-api/pkg/dataset"
	"swearena-api/pkg/sandboxlog"
)

var (
	logDir  = flag.String("logs", "logs", "base directory of the arena log tree")
	date    = flag.String("date", "", "date partition YYYY_MM_DD (default: today, UTC)")
	modes   = flag.String("modes", "battle_anony,battle_named,single", "comma separated chat modes to read")
	outFile = flag.String("out", "", "write the msgpack bundle to this path (optional)")
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	flag.Parse()

	partition := *date
	if partition == "" {
		partition = sandboxlog.DatePartition(time.Now())
	}
	if _, err := time.Parse("2006_01_02", partition); err != nil {
		log.Fatalf("[main] bad -date %q, want YYYY_MM_DD", partition)
	}

	var chatModes []arena.ChatMode
	for _, m := range strings.Split(*modes, ",") {
		m = strings.TrimSpace(m)
		if m != "" {
			chatModes = append(chatModes, arena.ChatMode(m))
		}
	}
	if len(chatModes) == 0 {
		log.Fatal("[main] no chat modes given")
	}

	log.Printf("[main] Reading %s partition %s (modes: %s)", *logDir, partition, *modes)

	bundle, err := dataset.Build(*logDir, partition, chatModes)
	if err != nil {
		log.Fatalf("[main] Failed to build dataset: %v", err)
	}

	printSummary(bundle)

	if *outFile != "" {
		if err := dataset.WriteFile(bundle, *outFile); err != nil {
			log.Fatalf("[main] Failed to write bundle: %v", err)
		}
		log.Printf("[main] Bundle written to %s", *outFile)
	}
}

func printSummary(bundle *dataset.Bundle) {
	log.Printf("[summary] %d conversations", len(bundle.Conversations))

	models := make([]string, 0, len(bundle.ModelCounts))
	for m := range bundle.ModelCounts {
		models = append(models, m)
	}
	sort.Strings(models)
	for _, m := range models {
		log.Printf("[summary] %s: %d chat events", m, bundle.ModelCounts[m])
	}

	votes := make(map[string]int)
	runs := 0
	failedRuns := 0
	for _, conv := range bundle.Conversations {
		for vote, n := range conv.Votes {
			votes[vote] += n
		}
		runs += len(conv.SandboxRuns)
		for _, run := range conv.SandboxRuns {
			if run.Status == string(sandboxlog.StatusFailed) {
				failedRuns++
			}
		}
	}

	voteTypes := make([]string, 0, len(votes))
	for v := range votes {
		voteTypes = append(voteTypes, v)
	}
	sort.Strings(voteTypes)
	for _, v := range voteTypes {
		log.Printf("[summary] votes.%s: %d", v, votes[v])
	}
	log.Printf("[summary] sandbox runs: %d (%d failed)", runs, failedRuns)

	for _, conv := range bundle.Conversations {
		fmt.Printf("%s  %s  model=%s rounds=%d runs=%d\n",
			conv.ChatSessionID, conv.ConvID, conv.Model, conv.ChatEvents, len(conv.SandboxRuns))
	}
}
