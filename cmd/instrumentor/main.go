// Command instrumentor rewrites the decoder source to emit trace probes.
// Every assignment in the target file gets a tracer.Probe call after it,
// recording the assigned value under a stable site hash. Running a campaign
// against the instrumented decoder then shows exactly which checks and
// intermediate values a mutation perturbed.
//
// The rewrite is done on the dst tree so comments and formatting survive.
// Site metadata (hash -> function, block, variable) is written alongside so
// snapshots can be mapped back to source.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"go/token"
	"hash/fnv"
	"log"
	"os"
	"sort"
	"strconv"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"github.com/dave/dst/dstutil"
)

const tracerImport = "alma.local/scuffer/tracer"

type SiteInfo struct {
	Site        uint64
	PackageName string
	FuncName    string
	BlockID     int
	VarName     string
	Location    string
}

type Metadata struct {
	// Sites lists the site hashes in sorted order, fixing the vector
	// layout for snapshot consumers.
	Sites   []string
	Details map[string]SiteInfo
}

var (
	targetFile string
	metaOut    string
	sites      = make(map[string]SiteInfo)
)

func main() {
	flag.StringVar(&targetFile, "file", "./oracle/decode.go", "Go file to instrument")
	flag.StringVar(&metaOut, "meta", "probes/sites.json", "where to write site metadata")
	flag.Parse()

	log.Printf("instrumenting %s", targetFile)
	if err := instrumentFile(targetFile); err != nil {
		log.Fatalf("instrumenting %s: %v", targetFile, err)
	}
	saveMetadata()
	log.Println("instrumentation complete")
}

func saveMetadata() {
	if err := os.MkdirAll("probes", 0755); err != nil {
		log.Fatalf("creating probes dir: %v", err)
	}

	var order []string
	for site := range sites {
		order = append(order, site)
	}
	sort.Strings(order)

	data, err := json.MarshalIndent(Metadata{Sites: order, Details: sites}, "", "  ")
	if err != nil {
		log.Fatalf("marshaling metadata: %v", err)
	}
	if err := os.WriteFile(metaOut, data, 0644); err != nil {
		log.Fatalf("writing metadata: %v", err)
	}
	log.Printf("saved %d probe sites to %s", len(order), metaOut)
}

func instrumentFile(path string) error {
	code, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	f, err := decorator.Parse(code)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	injectImport(f)

	packageName := f.Name.Name
	var currentFunc string
	blockCounter := 0

	dstutil.Apply(f, func(c *dstutil.Cursor) bool {
		switch n := c.Node().(type) {
		case *dst.FuncDecl:
			currentFunc = n.Name.Name
			blockCounter = 0
		case *dst.BlockStmt, *dst.CaseClause, *dst.CommClause:
			blockCounter++
		}
		return true
	}, func(c *dstutil.Cursor) bool {
		n, ok := c.Node().(*dst.AssignStmt)
		if !ok {
			return true
		}
		// Only statements directly inside a block can take an inserted
		// sibling; init clauses of if/for cannot.
		if c.Index() < 0 {
			return true
		}

		for _, lhs := range n.Lhs {
			ident, ok := lhs.(*dst.Ident)
			if !ok || ident.Name == "_" {
				continue
			}

			site := siteHash(packageName, currentFunc, blockCounter, ident.Name)
			siteStr := strconv.FormatUint(site, 10)
			sites[siteStr] = SiteInfo{
				Site:        site,
				PackageName: packageName,
				FuncName:    currentFunc,
				BlockID:     blockCounter,
				VarName:     ident.Name,
				Location:    path,
			}
			c.InsertAfter(probeStmt(siteStr, ident.Name))
		}
		return true
	})

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return decorator.Fprint(out, f)
}

// siteHash derives a stable id from the probe's source coordinates, so
// re-instrumenting an unchanged file yields the same metadata.
func siteHash(pkg, fn string, block int, name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(pkg))
	h.Write([]byte(fn))
	h.Write([]byte(strconv.Itoa(block)))
	h.Write([]byte(name))
	return h.Sum64()
}

// probeStmt builds `tracer.Probe(<site>, tracer.ToScalar(<name>))`.
func probeStmt(site, name string) *dst.ExprStmt {
	return &dst.ExprStmt{
		X: &dst.CallExpr{
			Fun: &dst.SelectorExpr{
				X:   &dst.Ident{Name: "tracer"},
				Sel: &dst.Ident{Name: "Probe"},
			},
			Args: []dst.Expr{
				&dst.BasicLit{Kind: token.INT, Value: site},
				&dst.CallExpr{
					Fun: &dst.SelectorExpr{
						X:   &dst.Ident{Name: "tracer"},
						Sel: &dst.Ident{Name: "ToScalar"},
					},
					Args: []dst.Expr{&dst.Ident{Name: name}},
				},
			},
		},
	}
}

func injectImport(f *dst.File) {
	quoted := strconv.Quote(tracerImport)
	for _, imp := range f.Imports {
		if imp.Path != nil && imp.Path.Value == quoted {
			return
		}
	}
	f.Decls = append([]dst.Decl{&dst.GenDecl{
		Tok: token.IMPORT,
		Specs: []dst.Spec{
			&dst.ImportSpec{
				Path: &dst.BasicLit{Kind: token.STRING, Value: quoted},
			},
		},
	}}, f.Decls...)
}
