package main

import (
	"flag"
	"fmt"
	"os"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/CreateIntelligens/SimpleFaceBlur/internal/inference"
)

func main() {
	size := flag.Int("size", 640, "Expected square input size")
	libPath := flag.String("lib", os.Getenv("ORT_LIBRARY_PATH"), "ONNX Runtime shared library")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: modelcheck [-size 640] [-lib libonnxruntime.so] <model.onnx>")
		fmt.Println("\nThis tool checks that a face model fits the detector's tensor contract.")
		os.Exit(1)
	}

	modelPath := flag.Arg(0)
	fmt.Printf("Checking ONNX model: %s\n", modelPath)

	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		fmt.Printf("Error: File not found: %s\n", modelPath)
		os.Exit(1)
	}

	fmt.Println("Initializing ONNX Runtime...")
	if err := inference.Initialize(*libPath); err != nil {
		fmt.Printf("❌ %v\n", err)
		fmt.Println("\nSet ORT_LIBRARY_PATH or pass -lib with the onnxruntime shared library.")
		os.Exit(1)
	}
	defer inference.Shutdown()

	fmt.Println("✓ ONNX Runtime initialized")

	info, err := inference.Inspect(modelPath)
	if err != nil {
		fmt.Printf("❌ Failed to get model info: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nInputs (%d):\n", len(info.Inputs))
	for _, in := range info.Inputs {
		fmt.Printf("  %s: shape=%v, type=%v\n", in.Name, in.Dimensions, in.DataType)
	}

	fmt.Printf("\nOutputs (%d):\n", len(info.Outputs))
	for _, out := range info.Outputs {
		fmt.Printf("  %s: shape=%v, type=%v\n", out.Name, out.Dimensions, out.DataType)
	}

	printMetadata(modelPath)

	if err := info.CheckDetector(*size); err != nil {
		fmt.Printf("\n❌ Model does not fit the detector: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\n✅ Model fits the detector contract.")
}

func printMetadata(modelPath string) {
	fmt.Println("\nMetadata:")
	metadata, err := ort.GetModelMetadata(modelPath)
	if err != nil {
		fmt.Printf("  (Could not read metadata: %v)\n", err)
		return
	}
	defer metadata.Destroy()

	if producer, err := metadata.GetProducerName(); err == nil {
		fmt.Printf("  Producer: %s\n", producer)
	}
	if version, err := metadata.GetVersion(); err == nil {
		fmt.Printf("  Version: %d\n", version)
	}
	if domain, err := metadata.GetDomain(); err == nil {
		fmt.Printf("  Domain: %s\n", domain)
	}
	if desc, err := metadata.GetDescription(); err == nil {
		fmt.Printf("  Description: %s\n", desc)
	}
}
