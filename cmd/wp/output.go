package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/groblegark/warmpath/internal/model"
)

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printNetworkMap(m *model.NetworkMap) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tNAME\tCOMPANY\tROLE\tLAYER")
	for _, n := range m.Nodes {
		company, role := "", ""
		if n.Estimated != nil {
			company = n.Estimated.Company
			role = n.Estimated.Role
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n", n.ID, n.Kind, n.DisplayName, company, role, n.Layer)
	}
	w.Flush()

	if m.Stats != nil {
		fmt.Printf("\n%d nodes (%d users, %d contacts), %d connections, avg strength %d\n",
			m.Stats.TotalNodes, m.Stats.RegisteredUsers, m.Stats.ImportedContacts,
			m.Stats.TotalConnections, m.Stats.AvgStrength)
	}
}

func printSearchResult(req *model.PathRequest) {
	fmt.Printf("Search:       %s\n", req.ID)
	fmt.Printf("Status:       %s\n", req.Status)
	if req.Query != "" {
		fmt.Printf("Query:        %s\n", req.Query)
	}
	fmt.Printf("Results:      %d\n\n", len(req.Results))

	if len(req.Results) == 0 {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tTARGET\tVIA\tDEPTH\tCONFIDENCE\tSTRENGTH")
	for _, res := range req.Results {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\n",
			res.Rank,
			res.Target.Name,
			pathSummary(res.Path),
			res.Depth,
			res.Confidence,
			res.PathStrength,
		)
	}
	w.Flush()
}

// pathSummary renders a found path as "Uma -> Abe -> Bea".
func pathSummary(path []model.PathNode) string {
	names := make([]string, len(path))
	for i, p := range path {
		names[i] = p.Name
	}
	return strings.Join(names, " -> ")
}

func printSearchList(reqs []*model.PathRequest) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tQUERY\tRESULTS\tCREATED")
	for _, r := range reqs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			r.ID, r.Status, r.Query, len(r.Results), r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	w.Flush()
	fmt.Printf("\n%d searches\n", len(reqs))
}

func printFlow(flow *model.IntroductionFlow) {
	fmt.Printf("ID:           %s\n", flow.ID)
	fmt.Printf("Requester:    %s\n", flow.RequesterID)
	fmt.Printf("Status:       %s\n", flow.Status)
	fmt.Printf("Path:         %s\n", strings.Join(flow.Path, " -> "))
	fmt.Printf("Current Step: %d of %d\n", flow.CurrentStep+1, len(flow.Steps))
	if !flow.ExpiresAt.IsZero() {
		fmt.Printf("Expires At:   %s\n", flow.ExpiresAt.Format("2006-01-02 15:04:05"))
	}
	if flow.Completion != nil {
		fmt.Printf("Completed:    %s (shared contact %s)\n",
			flow.Completion.CompletedAt.Format("2006-01-02 15:04:05"), flow.Completion.SharedContact)
	}

	if len(flow.Steps) == 0 {
		return
	}
	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tFROM\tTO\tSTATE")
	for _, s := range flow.Steps {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.StepNumber, s.FromUserID, s.ToUserID, stepState(s))
	}
	w.Flush()
}

// stepState summarizes where one step stands.
func stepState(s *model.IntroductionStep) string {
	switch {
	case s.Response != nil:
		return string(s.Response.Status)
	case s.Request != nil:
		return "awaiting response"
	default:
		return "not dispatched"
	}
}

func printFlowList(flows []*model.IntroductionFlow) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tREQUESTER\tPATH\tSTEP")
	for _, f := range flows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\n",
			f.ID, f.Status, f.RequesterID, strings.Join(f.Path, " -> "), f.CurrentStep+1, len(f.Steps))
	}
	w.Flush()
	fmt.Printf("\n%d introductions\n", len(flows))
}
