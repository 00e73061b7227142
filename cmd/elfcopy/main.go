// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command elfcopy is a minimal illustration of the elfobj core: it
// reads an ELF object, optionally strips named sections, and re-emits
// either a byte-accurate ELF file or a flat binary of its loadable
// contents. The section-selection policy here is deliberately simple;
// a real driver would offer far more of GNU objcopy's options.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/aclements/go-elfcopy/elfobj"
)

func main() {
	flagOutput := flag.String("o", "", "output file (required)")
	flagStrip := flag.String("strip", "", "comma-separated section names to remove")
	flagBinary := flag.Bool("binary", false, "emit a flat binary instead of an ELF file")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] input\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 || *flagOutput == "" {
		flag.Usage()
		os.Exit(2)
	}

	in, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	defer in.Close()

	obj, err := elfobj.Read(in)
	if err != nil {
		log.Fatalf("%s: %s", flag.Arg(0), err)
	}

	if *flagStrip != "" {
		strip := make(map[string]bool)
		for _, name := range strings.Split(*flagStrip, ",") {
			strip[name] = true
		}
		kept := obj.Sections[:0]
		for _, sec := range obj.Sections {
			if strip[sec.Name] {
				continue
			}
			kept = append(kept, sec)
		}
		obj.Sections = kept
	}

	out, err := os.Create(*flagOutput)
	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()

	if *flagBinary {
		img, err := obj.FinalizeBinary()
		if err != nil {
			log.Fatalf("finalize: %s", err)
		}
		buf := make([]byte, img.TotalSize())
		if err := img.Write(buf); err != nil {
			log.Fatalf("write: %s", err)
		}
		if _, err := out.Write(buf); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := obj.Finalize(); err != nil {
		log.Fatalf("finalize: %s", err)
	}
	buf := make([]byte, obj.TotalSize())
	if err := obj.Write(buf); err != nil {
		log.Fatalf("write: %s", err)
	}
	if _, err := out.Write(buf); err != nil {
		log.Fatal(err)
	}
}
