// Command scuffgen prints the mutation catalog for a function signature:
// one line per directive with its ordinal, kind string, category, and the
// byte position it would corrupt in the canonical fixture encoding.
package main

import (
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	flag "github.com/spf13/pflag"

	"alma.local/scuffer/memptr"
	"alma.local/scuffer/orders"
	"alma.local/scuffer/schema"
	"alma.local/scuffer/scuff"
)

var (
	flagSig    = flag.String("sig", "fulfillOrder", "signature to enumerate: fulfillOrder or validate")
	flagStatic = flag.Bool("static", false, "print the schema's reserved kind table instead of buffer-bound directives")
)

func main() {
	flag.Parse()

	sig, buf, err := fixture(*flagSig)
	if err != nil {
		log.Fatalf("building fixture: %v", err)
	}

	if *flagStatic {
		printKinds(sig)
		return
	}
	printDirectives(sig, buf)
}

func fixture(name string) (*schema.Signature, *memptr.Buffer, error) {
	switch name {
	case "fulfillOrder":
		buf, _, err := orders.FulfillOrderCalldata(orders.SampleOrder())
		return orders.FulfillOrderSig, buf, err
	case "validate":
		batch := []orders.Order{orders.SampleOrder(), orders.SampleOrder()}
		buf, _, err := orders.ValidateCalldata(batch)
		return orders.ValidateSig, buf, err
	}
	return nil, nil, fmt.Errorf("unknown signature %q", name)
}

// printKinds walks the schema alone: every ordinal the layout reserves,
// whether or not an instance populates it.
func printKinds(sig *schema.Signature) {
	fmt.Printf("%s  selector=%#x  reserved=%d\n\n",
		sig.CanonicalString(), sig.Selector(), scuff.RootRange(sig.Tuple()))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tPATH\tCATEGORY")
	for _, info := range scuff.Kinds(sig.Tuple()) {
		fmt.Fprintf(w, "%d\t%s\t%s\n", int(info.Kind), info.Path, info.Category)
	}
	w.Flush()
}

// printDirectives enumerates against the encoded fixture, so byte positions
// and the populated subset of each array are concrete.
func printDirectives(sig *schema.Signature, buf *memptr.Buffer) {
	dirs, err := scuff.GetDirectivesForCalldata(buf, sig)
	if err != nil {
		log.Fatalf("enumerating directives: %v", err)
	}

	fmt.Printf("%s  selector=%#x  calldata=%d bytes  directives=%d/%d\n\n",
		sig.CanonicalString(), sig.Selector(), buf.Len(), len(dirs), scuff.RootRange(sig.Tuple()))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tPATH\tCATEGORY\tBYTE\tBITS")
	for _, d := range dirs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\n",
			int(d.Kind), d.Positions.Path, d.Category, d.Target.Position(), d.Bits)
	}
	w.Flush()
}
