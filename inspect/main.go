package main

// inspect prints operations of a frozen TF graph and optionally
// rewrites the graph to a new file

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	tf "github.com/galeone/tensorflow/tensorflow/go"
)

// helper function to load frozen TF graph
func loadGraph(fname string) (*tf.Graph, error) {
	model, err := os.ReadFile(fname)
	if err != nil {
		return nil, err
	}
	graph := tf.NewGraph()
	if err := graph.Import(model, ""); err != nil {
		return nil, fmt.Errorf("unable to import graph model %s: %v", fname, err)
	}
	return graph, nil
}

func main() {
	var modelFile string
	flag.StringVar(&modelFile, "graph", "", "frozen graph file name")
	var output string
	flag.StringVar(&output, "output", "", "optional output file name to rewrite the graph to")
	flag.Parse()

	if modelFile == "" {
		flag.Usage()
		os.Exit(1)
	}

	graph, err := loadGraph(modelFile)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	for _, op := range graph.Operations() {
		fmt.Println(op.Name(), op.Type(), op.NumOutputs())
		for i := 0; i < op.NumOutputs(); i++ {
			fmt.Println("  output", i, "shape", op.Output(i).Shape())
		}
	}

	if output == "" {
		return
	}
	file, err := os.Create(output)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer file.Close()
	writer := bufio.NewWriter(file)
	nbytes, err := graph.WriteTo(writer)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := writer.Flush(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	fmt.Println("wrote", nbytes, "bytes")
}
