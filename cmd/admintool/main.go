// Command admintool is a one-off diagnostic CLI for cross-tenant graph
// reads (§9 Open Question: no cross-tenant listing HTTP API is exposed;
// this is the only sanctioned way to reach a namespace outside the
// operator's own tenant, and every invocation is audited through
// internal/adminaudit exactly like a future in-process caller would be).
//
// It is a local-diagnostics tool, not a production service: it builds its
// own in-memory internal/graphstore.Engine rather than attaching to the
// backend a running cmd/api process holds, since the core's reference
// graph engine is process-local. Pointed at a real shared graph backend,
// the same internal/adminaudit.Gateway wiring below is what a support
// tool would use.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rawcontext/engram-sub001/internal/adminaudit"
	"github.com/rawcontext/engram-sub001/internal/audit"
	"github.com/rawcontext/engram-sub001/internal/graphstore"
	"github.com/rawcontext/engram-sub001/internal/pathexpr"
	"github.com/rawcontext/engram-sub001/internal/tenant"
)

func main() {
	userID := flag.String("user", "", "operator user id performing the read")
	userOrgID := flag.String("user-org", "", "operator's own org id")
	targetOrgID := flag.String("target-org", "", "org id whose namespace is being inspected")
	resourceType := flag.String("resource-type", "Memory", "schema label being queried")
	resourceID := flag.String("resource-id", "", "optional specific resource id, for the audit trail only")
	defaultNamespace := flag.String("namespace", "engram_default", "tenant.Router default namespace")
	flag.Parse()

	if *userID == "" || *userOrgID == "" || *targetOrgID == "" {
		fmt.Fprintln(os.Stderr, "admintool: -user, -user-org and -target-org are required")
		flag.Usage()
		os.Exit(2)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("admintool: building logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	engine := graphstore.NewEngine()
	backend := graphstore.NewTenantBackend(engine)
	router := tenant.NewRouter(backend, *defaultNamespace)
	sink := audit.NewSink(logger, "engram_admintool", prometheus.NewRegistry())
	gateway := adminaudit.NewGateway(router, sink)

	plan, _ := pathexpr.NewQB(*resourceType).Build()

	rows, err := gateway.Query(context.Background(), *userID, *userOrgID, *targetOrgID, *resourceType, *resourceID, adminaudit.RequestMeta{}, plan)
	if err != nil {
		log.Fatalf("admintool: query failed: %v", err)
	}

	fmt.Printf("%d row(s)\n", len(rows))
	for _, row := range rows {
		fmt.Printf("%+v\n", row)
	}
}
