package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/numquant/internal/qzfile"
	"github.com/therealutkarshpriyadarshi/numquant/pkg/api/rest/middleware"
	"github.com/therealutkarshpriyadarshi/numquant/pkg/quant"
	"github.com/therealutkarshpriyadarshi/numquant/pkg/tensor"
)

const (
	version = "1.0.0"
)

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "encode":
		handleEncode(os.Args[2:])
	case "decode":
		handleDecode(os.Args[2:])
	case "info":
		handleInfo(os.Args[2:])
	case "kinds":
		handleKinds()
	case "token":
		handleToken(os.Args[2:])
	case "version":
		fmt.Printf("numquant-cli version %s\n", version)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		showUsage()
		os.Exit(1)
	}
}

// tensorInput is the accepted JSON input form. A bare JSON array is
// also accepted and treated as a rank-1 tensor.
type tensorInput struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

func handleEncode(args []string) {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	var (
		in       = fs.String("in", "-", "input JSON file (- for stdin)")
		out      = fs.String("out", "", "output .qz file (required)")
		kindName = fs.String("kind", "uint8", "target kind (see 'kinds')")
		scheme   = fs.String("scheme", "linear", "quantization scheme: linear or log")
		mode     = fs.String("mode", "linspace", "log round mode: linspace or logspace")
		minStr   = fs.String("min", "", "explicit range minimum (linear only)")
		maxStr   = fs.String("max", "", "explicit range maximum (linear only)")
	)
	fs.Parse(args)

	if *out == "" {
		fmt.Println("Error: -out is required")
		fs.Usage()
		os.Exit(1)
	}

	kind, err := quant.ParseKind(*kindName)
	if err != nil {
		fmt.Printf("Error: unknown kind %q\n", *kindName)
		os.Exit(1)
	}

	sch, err := qzfile.ParseScheme(*scheme)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	input := readTensorInput(*in)
	t, err := tensor.FromSlice(input.Data, input.Shape...)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	var q *quant.Quantized
	switch sch {
	case qzfile.SchemeLinear:
		var ext *quant.Extrema
		if *minStr != "" || *maxStr != "" {
			if *minStr == "" || *maxStr == "" {
				fmt.Println("Error: -min and -max must be given together")
				os.Exit(1)
			}
			ext = &quant.Extrema{Min: parseFloat(*minStr), Max: parseFloat(*maxStr)}
		}
		q, err = quant.EncodeLinear(kind, t, ext)
	case qzfile.SchemeLog:
		if *minStr != "" || *maxStr != "" {
			fmt.Println("Error: explicit extrema only apply to linear encoding")
			os.Exit(1)
		}
		var rm quant.RoundMode
		rm, err = quant.ParseRoundMode(*mode)
		if err == nil {
			q, err = quant.EncodeLog(kind, t, rm)
		}
	}
	if err != nil {
		fmt.Printf("Encode failed: %v\n", err)
		os.Exit(1)
	}

	f, err := os.Create(*out)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	if err := qzfile.Write(f, sch, q); err != nil {
		fmt.Printf("Error writing %s: %v\n", *out, err)
		os.Exit(1)
	}

	fmt.Printf("✓ Encoded %d elements to %s (%s, %s)\n", q.Len(), *out, kind, sch)
}

func handleDecode(args []string) {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	var (
		in   = fs.String("in", "", "input .qz file (required)")
		out  = fs.String("out", "-", "output JSON file (- for stdout)")
		bits = fs.Int("bits", 0, "float width: 32 or 64 (default: by kind width)")
	)
	fs.Parse(args)

	if *in == "" {
		fmt.Println("Error: -in is required")
		fs.Usage()
		os.Exit(1)
	}
	if *bits != 0 && *bits != 32 && *bits != 64 {
		fmt.Printf("Error: invalid -bits %d (must be 32 or 64)\n", *bits)
		os.Exit(1)
	}

	scheme, q := readContainer(*in)

	floatBits := *bits
	if floatBits == 0 {
		floatBits = q.DefaultFloatBits()
	}

	var data []float64
	if scheme == qzfile.SchemeLog {
		if floatBits == 32 {
			data = widen(quant.DecodeLog32(q).Data())
		} else {
			data = quant.DecodeLog64(q).Data()
		}
	} else {
		if floatBits == 32 {
			data = widen(quant.DecodeLinear32(q).Data())
		} else {
			data = quant.DecodeLinear64(q).Data()
		}
	}

	output, err := json.Marshal(tensorInput{Shape: q.Shape(), Data: data})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	output = append(output, '\n')

	if *out == "-" {
		os.Stdout.Write(output)
		return
	}
	if err := os.WriteFile(*out, output, 0o644); err != nil {
		fmt.Printf("Error writing %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Printf("✓ Decoded %d elements to %s\n", q.Len(), *out)
}

func handleInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	var (
		in = fs.String("in", "", "input .qz file (required)")
	)
	fs.Parse(args)

	if *in == "" {
		fmt.Println("Error: -in is required")
		fs.Usage()
		os.Exit(1)
	}

	scheme, q := readContainer(*in)

	dims := make([]string, q.Rank())
	for i := range dims {
		dims[i] = strconv.Itoa(q.Dim(i))
	}
	shape := strings.Join(dims, "x")
	if shape == "" {
		shape = "scalar"
	}

	fmt.Printf("File:     %s\n", *in)
	fmt.Printf("Scheme:   %s\n", scheme)
	fmt.Printf("Kind:     %s (%d bits, signed=%v)\n", q.Kind(), q.Kind().Bits(), q.Kind().Signed())
	fmt.Printf("Shape:    %s (%d elements)\n", shape, q.Len())
	fmt.Printf("Range:    [%g, %g]\n", q.Min(), q.Max())
	fmt.Printf("Payload:  %d bytes packed\n", 16+(q.Len()*q.Kind().Bits()+7)/8)
}

func handleKinds() {
	fmt.Println("Supported target kinds:")
	fmt.Println()
	fmt.Printf("  %-8s %-6s %-8s %-22s %s\n", "NAME", "BITS", "SIGNED", "MIN", "MAX")
	for _, name := range quant.Kinds() {
		k, err := quant.ParseKind(name)
		if err != nil {
			continue
		}
		fmt.Printf("  %-8s %-6d %-8v %-22.0f %.0f\n", k, k.Bits(), k.Signed(), k.TypeMin(), k.TypeMax())
	}
	fmt.Println()
	fmt.Println("Log encoding accepts unsigned kinds only.")
}

func handleToken(args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	var (
		subject = fs.String("subject", "cli", "token subject")
		scopes  = fs.String("scopes", "encode,decode", "comma-separated scopes")
		secret  = fs.String("secret", "", "HMAC signing secret (required)")
		ttl     = fs.Duration("ttl", time.Hour, "token lifetime")
	)
	fs.Parse(args)

	if *secret == "" {
		fmt.Println("Error: -secret is required")
		fs.Usage()
		os.Exit(1)
	}

	token, err := middleware.GenerateToken(*subject, strings.Split(*scopes, ","), *secret, *ttl)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}

func readTensorInput(path string) tensorInput {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		fmt.Printf("Error reading input: %v\n", err)
		os.Exit(1)
	}

	var input tensorInput
	if err := json.Unmarshal(raw, &input); err != nil {
		// Fall back to a bare array
		var data []float64
		if err2 := json.Unmarshal(raw, &data); err2 != nil {
			fmt.Printf("Error parsing input: %v\n", err)
			os.Exit(1)
		}
		input = tensorInput{Shape: []int{len(data)}, Data: data}
	}
	if input.Shape == nil {
		input.Shape = []int{len(input.Data)}
	}
	return input
}

func readContainer(path string) (qzfile.Scheme, *quant.Quantized) {
	f, err := os.Open(path)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	scheme, q, err := qzfile.Read(f)
	if err != nil {
		fmt.Printf("Error reading %s: %v\n", path, err)
		os.Exit(1)
	}
	return scheme, q
}

func widen(data []float32) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = float64(v)
	}
	return out
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		fmt.Printf("Error: invalid number %q\n", s)
		os.Exit(1)
	}
	return v
}

func showUsage() {
	fmt.Println(`numquant CLI - fixed-width quantization of numeric tensors

Usage:
  numquant-cli <command> [options]

Commands:
  encode    Quantize a JSON tensor into a .qz container
  decode    Reconstruct a JSON tensor from a .qz container
  info      Show container metadata
  kinds     List supported target kinds
  token     Issue a bearer token for the HTTP API
  version   Show version
  help      Show this help message

Examples:

  # Quantize a flat array to uint8 (range computed from the data)
  echo '[0.1, 0.5, 0.9]' | numquant-cli encode -out weights.qz

  # Quantize a 2x3 tensor to int16 with an explicit range
  echo '{"shape":[2,3],"data":[1,2,3,4,5,6]}' | \
    numquant-cli encode -kind int16 -min 0 -max 10 -out t.qz

  # Logarithmic quantization of non-negative magnitudes
  echo '[0, 0.001, 10, 1000]' | \
    numquant-cli encode -scheme log -kind uint16 -mode logspace -out mag.qz

  # Reconstruct and inspect
  numquant-cli decode -in mag.qz
  numquant-cli info -in mag.qz

  # Issue a token for a server with auth enabled
  numquant-cli token -secret $NUMQUANT_JWT_SECRET -subject deploy`)
}
