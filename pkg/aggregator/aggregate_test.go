package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	stackerrors "github.com/stackaudit/stackaudit/pkg/errors"
)

type fakeAnalyzer struct {
	resp  *ScoringResponse
	err   error
	calls int
	got   [][]LicenseScoringInput
}

func (a *fakeAnalyzer) StackLicense(_ context.Context, packages []LicenseScoringInput) (*ScoringResponse, error) {
	a.calls++
	a.got = append(a.got, packages)
	if a.err != nil {
		return nil, a.err
	}
	if a.resp != nil {
		return a.resp, nil
	}
	return &ScoringResponse{}, nil
}

type fakeStore struct {
	saved map[string]*AggregationResult
	err   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: make(map[string]*AggregationResult)}
}

func (s *fakeStore) SaveResult(_ context.Context, requestID string, result *AggregationResult) error {
	if s.err != nil {
		return s.err
	}
	s.saved[requestID] = result
	return nil
}

func licensedRecord(name, version string, licenses ...string) RawRecord {
	lics := make([]any, len(licenses))
	for i, l := range licenses {
		lics[i] = l
	}
	return RawRecord{
		Version: Facet{
			"pname":             []any{name},
			"version":           []any{version},
			"pecosystem":        []any{"npm"},
			"declared_licenses": lics,
		},
	}
}

func testRequest() *Request {
	return &Request{
		RequestID: "req-1",
		Manifests: []ManifestInput{
			{
				Ecosystem:        "NPM",
				ManifestFile:     "package.json",
				ManifestFilePath: "/app/package.json",
				Resolved: []Dependency{
					{Package: "a", Version: "1"},
					{Package: "b", Version: "2"},
					{Package: "ghost", Version: "9"},
				},
			},
		},
	}
}

func testGraph() *fakeGraph {
	return &fakeGraph{records: map[string][]RawRecord{
		"a@1": {licensedRecord("a", "1", "MIT")},
		"b@2": {licensedRecord("b", "2", "MIT", "Apache-2.0")},
	}}
}

func TestExecuteReconcilesDependencySets(t *testing.T) {
	agg := New(testGraph(), &fakeAnalyzer{}, newFakeStore(), quietLogger())

	outcome, err := agg.Execute(context.Background(), testRequest(), true)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if outcome.Status != StatusSuccess {
		t.Fatalf("Status = %q, want success", outcome.Status)
	}

	info := outcome.Result.StackData[0].UserStackInfo

	if info.Ecosystem != "npm" {
		t.Errorf("Ecosystem = %q, want lowercased npm", info.Ecosystem)
	}
	if info.AnalyzedDependenciesCount != 2 || len(info.AnalyzedDependencies) != 2 {
		t.Fatalf("analyzed = %d, want 2", info.AnalyzedDependenciesCount)
	}
	if info.UnknownDependenciesCount != 1 || len(info.UnknownDependencies) != 1 {
		t.Fatalf("unknown = %d, want 1", info.UnknownDependenciesCount)
	}
	if info.UnknownDependencies[0] != (UnknownDependency{Name: "ghost", Version: "9"}) {
		t.Errorf("unknown = %+v", info.UnknownDependencies[0])
	}

	// analyzed ∪ unknown must equal the requested set, disjointly.
	union := make(map[Dependency]struct{})
	for _, c := range info.AnalyzedDependencies {
		union[Dependency{Package: c.Name, Version: c.Version}] = struct{}{}
	}
	for _, u := range info.UnknownDependencies {
		dep := Dependency{Package: u.Name, Version: u.Version}
		if _, clash := union[dep]; clash {
			t.Errorf("dependency %v is both analyzed and unknown", dep)
		}
		union[dep] = struct{}{}
	}
	if len(union) != 3 {
		t.Errorf("union size = %d, want 3", len(union))
	}

	// Distinct licenses are the deduplicated union across components.
	if !reflect.DeepEqual(info.DistinctLicenses, []string{"Apache-2.0", "MIT"}) {
		t.Errorf("DistinctLicenses = %v", info.DistinctLicenses)
	}
	if info.TotalLicenses != 2 {
		t.Errorf("TotalLicenses = %d, want 2", info.TotalLicenses)
	}
	if !reflect.DeepEqual(info.Dependencies, testRequest().Manifests[0].Resolved) {
		t.Errorf("Dependencies = %v, want original request list", info.Dependencies)
	}
}

func TestExecuteEmptyDependencyList(t *testing.T) {
	agg := New(&fakeGraph{}, &fakeAnalyzer{}, newFakeStore(), quietLogger())

	req := &Request{
		RequestID: "req-empty",
		Manifests: []ManifestInput{{Ecosystem: "pypi", ManifestFile: "requirements.txt"}},
	}
	outcome, err := agg.Execute(context.Background(), req, true)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	info := outcome.Result.StackData[0].UserStackInfo
	if info.AnalyzedDependenciesCount != 0 || info.UnknownDependenciesCount != 0 || info.TotalLicenses != 0 {
		t.Errorf("expected all-zero counts, got %+v", info)
	}
}

func TestExecuteAttachesLicenseAnalysis(t *testing.T) {
	analysis := json.RawMessage(`{"status":"Successful","_representative":"MIT"}`)
	analyzer := &fakeAnalyzer{resp: &ScoringResponse{
		Status:       strptr("Successful"),
		StackLicense: strptr("MIT"),
		Packages: []ScoredPackage{
			{Package: "a", Version: "1", LicenseAnalysis: analysis},
			{Package: "nomatch", Version: "0", LicenseAnalysis: analysis},
		},
	}}
	agg := New(testGraph(), analyzer, newFakeStore(), quietLogger())

	outcome, err := agg.Execute(context.Background(), testRequest(), true)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if analyzer.calls != 1 {
		t.Errorf("analyzer calls = %d, want one per manifest", analyzer.calls)
	}
	// Payload carries one scoring input per analyzed component.
	if len(analyzer.got[0]) != 2 {
		t.Errorf("payload = %d inputs, want 2", len(analyzer.got[0]))
	}

	comps := outcome.Result.StackData[0].UserStackInfo.AnalyzedDependencies
	if string(comps[0].LicenseAnalysis) != string(analysis) {
		t.Errorf("component a missing attached analysis: %s", comps[0].LicenseAnalysis)
	}
	if comps[1].LicenseAnalysis != nil {
		t.Errorf("component b should be unmodified, got %s", comps[1].LicenseAnalysis)
	}

	info := outcome.Result.StackData[0].UserStackInfo
	if info.StackLicenseConflict == nil || *info.StackLicenseConflict {
		t.Errorf("StackLicenseConflict = %v, want false", info.StackLicenseConflict)
	}
}

func TestExecuteStackLicenseConflictFlag(t *testing.T) {
	// Service answered but resolved no stack license: the primary risk
	// signal must be raised.
	analyzer := &fakeAnalyzer{resp: &ScoringResponse{Status: strptr("StackConflict")}}
	agg := New(testGraph(), analyzer, newFakeStore(), quietLogger())

	outcome, err := agg.Execute(context.Background(), testRequest(), true)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	info := outcome.Result.StackData[0].UserStackInfo
	if info.StackLicenseConflict == nil || !*info.StackLicenseConflict {
		t.Errorf("StackLicenseConflict = %v, want true", info.StackLicenseConflict)
	}
}

func TestExecuteLicenseServiceFailure(t *testing.T) {
	analyzer := &fakeAnalyzer{err: errors.New("service unavailable")}
	agg := New(testGraph(), analyzer, newFakeStore(), quietLogger())

	outcome, err := agg.Execute(context.Background(), testRequest(), true)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	info := outcome.Result.StackData[0].UserStackInfo
	if info.LicenseAnalysis.Status != nil {
		t.Errorf("Status = %v, want unset after transport failure", info.LicenseAnalysis.Status)
	}
	for _, c := range info.AnalyzedDependencies {
		if c.LicenseAnalysis != nil {
			t.Errorf("no component may carry analysis after transport failure")
		}
	}
	// Resolution failed, so the conflict flag is raised.
	if info.StackLicenseConflict == nil || !*info.StackLicenseConflict {
		t.Errorf("StackLicenseConflict = %v, want true", info.StackLicenseConflict)
	}
}

func TestExecuteDryRun(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	store := newFakeStore()
	agg := New(testGraph(), analyzer, store, quietLogger())

	outcome, err := agg.Execute(context.Background(), testRequest(), false)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if analyzer.calls != 0 {
		t.Error("dry run must not invoke the license service")
	}
	if len(store.saved) != 0 {
		t.Error("dry run must not persist")
	}

	info := outcome.Result.StackData[0].UserStackInfo
	if info.StackLicenseConflict != nil {
		t.Errorf("StackLicenseConflict = %v, want unset in dry run", info.StackLicenseConflict)
	}
	if info.LicenseAnalysis.Status != nil {
		t.Errorf("license status = %v, want unset in dry run", info.LicenseAnalysis.Status)
	}
	// Full report shape is still produced.
	if info.AnalyzedDependenciesCount != 2 || info.UnknownDependenciesCount != 1 {
		t.Errorf("dry run must still reconcile: %+v", info)
	}
}

// Dry run and persisted run agree on everything the license step does not
// touch, so recomputation is deterministic across modes.
func TestExecuteDryRunMatchesPersistedRun(t *testing.T) {
	dry, err := New(testGraph(), &fakeAnalyzer{}, newFakeStore(), quietLogger()).
		Execute(context.Background(), testRequest(), false)
	if err != nil {
		t.Fatalf("dry run error: %v", err)
	}
	persisted, err := New(testGraph(), &fakeAnalyzer{}, newFakeStore(), quietLogger()).
		Execute(context.Background(), testRequest(), true)
	if err != nil {
		t.Fatalf("persisted run error: %v", err)
	}

	a := dry.Result.StackData[0].UserStackInfo
	b := persisted.Result.StackData[0].UserStackInfo

	if !reflect.DeepEqual(a.AnalyzedDependencies, b.AnalyzedDependencies) {
		t.Error("analyzed dependencies differ between modes")
	}
	if !reflect.DeepEqual(a.UnknownDependencies, b.UnknownDependencies) {
		t.Error("unknown dependencies differ between modes")
	}
	if !reflect.DeepEqual(a.DistinctLicenses, b.DistinctLicenses) {
		t.Error("distinct licenses differ between modes")
	}
}

func TestExecutePersistsResult(t *testing.T) {
	store := newFakeStore()
	agg := New(testGraph(), &fakeAnalyzer{}, store, quietLogger())

	outcome, err := agg.Execute(context.Background(), testRequest(), true)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	saved, ok := store.saved["req-1"]
	if !ok {
		t.Fatal("result was not persisted under the request id")
	}
	if saved != outcome.Result {
		t.Error("persisted result differs from returned result")
	}
	if saved.Audit.Version != SchemaVersion || saved.Release != ReleaseMarker {
		t.Errorf("audit = %+v release = %q", saved.Audit, saved.Release)
	}
	if saved.Audit.StartedAt == "" || saved.Audit.EndedAt == "" {
		t.Error("audit timestamps must be set")
	}
}

func TestExecuteStorageError(t *testing.T) {
	store := newFakeStore()
	store.err = stackerrors.New(stackerrors.ErrCodeStorage, "connection pool exhausted")
	agg := New(testGraph(), &fakeAnalyzer{}, store, quietLogger())

	outcome, err := agg.Execute(context.Background(), testRequest(), true)
	if err != nil {
		t.Fatalf("storage errors must not surface as errors, got %v", err)
	}
	if outcome.Status != StatusStorageError {
		t.Errorf("Status = %q, want %q", outcome.Status, StatusStorageError)
	}
	if outcome.Message == "" {
		t.Error("storage outcome must carry the underlying message")
	}
	if outcome.RequestID != "req-1" {
		t.Errorf("RequestID = %q", outcome.RequestID)
	}
}

func TestExecuteContractViolationAborts(t *testing.T) {
	analyzer := &fakeAnalyzer{resp: &ScoringResponse{
		ConflictPackages: []map[string]string{{"lonely": "MIT"}},
	}}
	agg := New(testGraph(), analyzer, newFakeStore(), quietLogger())

	_, err := agg.Execute(context.Background(), testRequest(), true)
	if !stackerrors.Is(err, stackerrors.ErrCodeContract) {
		t.Errorf("err = %v, want CONTRACT_VIOLATION", err)
	}
}

func TestExecuteMergesCurrentStackLicense(t *testing.T) {
	req := testRequest()
	req.CurrentStackLicense = map[string]any{"license": "BSD-3-Clause"}
	agg := New(testGraph(), &fakeAnalyzer{}, newFakeStore(), quietLogger())

	outcome, err := agg.Execute(context.Background(), req, false)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	got := outcome.Result.StackData[0].UserStackInfo.LicenseAnalysis.CurrentStackLicense
	if got["license"] != "BSD-3-Clause" {
		t.Errorf("CurrentStackLicense = %v", got)
	}
}

func TestExecuteFaultIsolationAcrossManifests(t *testing.T) {
	// First manifest's dependencies all fail to fetch; second is intact.
	graph := &fakeGraph{
		records: map[string][]RawRecord{
			"ok@1": {licensedRecord("ok", "1", "MIT")},
		},
		errs: map[string]error{
			"bad@1": errors.New("gremlin timeout"),
		},
	}
	req := &Request{
		RequestID: "req-multi",
		Manifests: []ManifestInput{
			{Ecosystem: "npm", ManifestFile: "broken/package.json", Resolved: []Dependency{{Package: "bad", Version: "1"}}},
			{Ecosystem: "npm", ManifestFile: "package.json", Resolved: []Dependency{{Package: "ok", Version: "1"}}},
		},
	}
	agg := New(graph, &fakeAnalyzer{}, newFakeStore(), quietLogger())

	outcome, err := agg.Execute(context.Background(), req, true)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(outcome.Result.StackData) != 2 {
		t.Fatalf("stack_data = %d manifests, want 2", len(outcome.Result.StackData))
	}

	degraded := outcome.Result.StackData[0].UserStackInfo
	if degraded.AnalyzedDependenciesCount != 0 || degraded.UnknownDependenciesCount != 1 {
		t.Errorf("degraded manifest = %+v", degraded)
	}
	intact := outcome.Result.StackData[1].UserStackInfo
	if intact.AnalyzedDependenciesCount != 1 {
		t.Errorf("intact manifest = %+v", intact)
	}
}

func TestExecuteNilRequest(t *testing.T) {
	agg := New(&fakeGraph{}, &fakeAnalyzer{}, nil, quietLogger())

	_, err := agg.Execute(context.Background(), nil, false)
	if !stackerrors.Is(err, stackerrors.ErrCodeInvalidRequest) {
		t.Errorf("err = %v, want INVALID_REQUEST", err)
	}
}

func TestExecutePersistWithoutStore(t *testing.T) {
	agg := New(testGraph(), &fakeAnalyzer{}, nil, quietLogger())

	outcome, err := agg.Execute(context.Background(), testRequest(), true)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if outcome.Status != StatusStorageError {
		t.Errorf("Status = %q, want storage error when no store is configured", outcome.Status)
	}
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Request)
		wantErr bool
	}{
		{"valid", func(r *Request) {}, false},
		{"uppercase ecosystem tolerated", func(r *Request) { r.Manifests[0].Ecosystem = " NPM " }, false},
		{"empty request id", func(r *Request) { r.RequestID = "" }, true},
		{"path in request id", func(r *Request) { r.RequestID = "../etc" }, true},
		{"no manifests", func(r *Request) { r.Manifests = nil }, true},
		{"empty ecosystem", func(r *Request) { r.Manifests[0].Ecosystem = "" }, true},
		{"quoted ecosystem", func(r *Request) { r.Manifests[0].Ecosystem = "npm'" }, true},
		{"manifest filename with path", func(r *Request) { r.Manifests[0].ManifestFile = "a/package.json" }, true},
		{"empty manifest filename", func(r *Request) { r.Manifests[0].ManifestFile = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequest()
			tt.mutate(req)
			err := req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
