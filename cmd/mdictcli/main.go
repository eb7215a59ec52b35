// Command mdictcli opens an mdx/mdd file and either looks up a single key
// or lists the candidate keys starting at it from the command line.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rodaine/table"

	"github.com/go-mdict/mdict"
)

func main() {
	var (
		express = flag.Bool("express", false, "build the full keyword hash table for O(1)-ish lookup")
		search  = flag.Bool("search", false, "list up to 64 consecutive keys starting at the first key >= the word instead of looking it up")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <file.mdx|file.mdd> <word>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}
	path, word := flag.Arg(0), flag.Arg(1)

	m, err := mdict.Open(path, mdict.OpenOptions{Express: *express})
	if err != nil {
		color.Red("open %s: %v", path, err)
		os.Exit(1)
	}
	defer m.Close()

	if *search {
		candidates, err := m.Search(word)
		if err != nil {
			color.Red("search %q: %v", word, err)
			os.Exit(1)
		}
		tbl := table.New("#", "Key")
		for i, k := range candidates {
			tbl.AddRow(i+1, k)
		}
		tbl.Print()
		return
	}

	def, err := m.Lookup(word)
	if err != nil {
		color.Yellow("%s: %v", word, err)
		os.Exit(1)
	}
	fmt.Println(def)
}
