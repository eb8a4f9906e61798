package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/plan-systems/klog"
)

func main() {

	flag.Set("logtostderr", "true")
	flag.Set("v", "2")

	fset := flag.NewFlagSet("", flag.ContinueOnError)
	klog.InitFlags(fset)
	fset.Set("logtostderr", "true")
	fset.Set("v", "2")
	klog.SetFormatter(&klog.FmtConstWidth{
		FileNameCharWidth: 16,
		UseColor:          true,
	})

	cfg := DefaultConfig()
	cfg.BindFlags(flag.CommandLine)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: wlmc [flags] [script.py]\n\n"+
			"With -lattice, runs the sweep loop natively; otherwise runs the given gpython script, or a REPL.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	pathname := flag.Arg(0)
	switch {
	case strings.HasSuffix(pathname, ".py") || cfg.Lattice == "":
		go_gpython(pathname)
	default:
		if _, err := runNative(context.Background(), cfg); err != nil {
			klog.Flush()
			klog.Fatalf("wlmc: %v", err)
		}
	}

	klog.Flush()
}
