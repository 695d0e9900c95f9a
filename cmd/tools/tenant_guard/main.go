package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// tenantGuard inspects the SQL constants in internal/db and ensures every
// SELECT/UPDATE/DELETE against a tenant-owned table carries a tenant_id
// filter. Exit code 0 = ok, 1 = violation, 2 = other error.
func main() {
	root := filepath.Join("internal", "db")
	violations, err := scan(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tenant_guard error: %v\n", err)
		os.Exit(2)
	}
	if len(violations) > 0 {
		for _, v := range violations {
			fmt.Fprintf(os.Stderr, "VIOLATION: %s\n", v)
		}
		os.Exit(1)
	}
	fmt.Println("tenant_guard: OK")
}

var (
	reStmt   = regexp.MustCompile(`(?is)^\s*(select|update|delete)\b`)
	reTenant = regexp.MustCompile(`(?i)tenant_id\s*=\s*\$[0-9]+`)
	reTable  = regexp.MustCompile(`(?is)\b(?:from|update|delete\s+from)\s+([a-z_]+)`)
)

// Tables either scoped by their parent row or forming the tenant root itself.
var exemptTables = map[string]bool{
	"tenants":              true,
	"extra_selections":     true,
	"vehicle_extra_prices": true,
	"payment_allocations":  true,
	"domain_events":        true,
}

func scan(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var violations []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".go") || strings.HasSuffix(entry.Name(), "_test.go") {
			continue
		}
		found, err := checkFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		violations = append(violations, found...)
	}
	return violations, nil
}

func checkFile(path string) ([]string, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, 0)
	if err != nil {
		return nil, err
	}

	// Two passes so concatenations can reference consts declared later in
	// the file, e.g. shared column lists.
	consts := map[string]string{}
	positions := map[string]token.Position{}
	for pass := 0; pass < 2; pass++ {
		for _, decl := range file.Decls {
			gen, ok := decl.(*ast.GenDecl)
			if !ok || (gen.Tok != token.CONST && gen.Tok != token.VAR) {
				continue
			}
			for _, spec := range gen.Specs {
				vs, ok := spec.(*ast.ValueSpec)
				if !ok {
					continue
				}
				for i, name := range vs.Names {
					if i >= len(vs.Values) {
						continue
					}
					if val, ok := flatten(vs.Values[i], consts); ok {
						consts[name.Name] = val
						positions[name.Name] = fset.Position(name.Pos())
					}
				}
			}
		}
	}

	var violations []string
	for name, sql := range consts {
		if !reStmt.MatchString(sql) || exempt(sql) {
			continue
		}
		if !reTenant.MatchString(sql) {
			pos := positions[name]
			violations = append(violations, fmt.Sprintf("%s:%d: %s lacks tenant_id filter", pos.Filename, pos.Line, name))
		}
	}
	return violations, nil
}

func flatten(expr ast.Expr, consts map[string]string) (string, bool) {
	switch e := expr.(type) {
	case *ast.BasicLit:
		if e.Kind != token.STRING {
			return "", false
		}
		val, err := strconv.Unquote(e.Value)
		if err != nil {
			return "", false
		}
		return val, true
	case *ast.Ident:
		val, ok := consts[e.Name]
		return val, ok
	case *ast.BinaryExpr:
		if e.Op != token.ADD {
			return "", false
		}
		left, ok := flatten(e.X, consts)
		if !ok {
			return "", false
		}
		right, ok := flatten(e.Y, consts)
		if !ok {
			return "", false
		}
		return left + right, true
	case *ast.ParenExpr:
		return flatten(e.X, consts)
	default:
		return "", false
	}
}

func exempt(sql string) bool {
	m := reTable.FindStringSubmatch(sql)
	if m == nil {
		return false
	}
	return exemptTables[strings.ToLower(m[1])]
}
