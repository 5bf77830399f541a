package etl_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policywrangle/internal/etl"
	_ "policywrangle/internal/etl/sources"
)

const policiesCSV = `State,Effective Date,Visitation Suspended?,Free Phone Calls?,Additional Policies
Alabama,3/13/2020,X,,Volunteers suspended; temperature screening at entry
Alaska,2020-03-20,exploring,X - approved 3/1,"Transfers halted, no tours"
Arizona,03/18/2020,,exploring options,
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func policyJob(path string) *etl.Job {
	return &etl.Job{
		ID:         "test",
		SourceType: "csv_file",
		SourceCfg:  etl.SourceConfig{"filePath": path},
		Markers: []etl.MarkerPair{
			{Source: "visitation_suspended", Target: "no_visits"},
			{Source: "free_phone_calls", Target: "phone_access"},
		},
		TextField: "additional_policies",
		Categories: []etl.Category{
			{Name: "no_volunteers", Keywords: []string{"volunteer"}},
			{Name: "limiting_movement", Keywords: []string{"transfer", "travel", "tour"}},
			{Name: "screening", Keywords: []string{"screening", "temperature"}},
			{Name: "healthcare_support", Keywords: []string{"co-pay"}},
		},
		Columns: []string{"state", "effective_date", "no_visits", "phone_access",
			"no_volunteers", "limiting_movement", "screening", "healthcare_support"},
	}
}

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestEngine_Run(t *testing.T) {
	path := writeFile(t, "policies.csv", policiesCSV)
	var buf bytes.Buffer
	engine := &etl.Engine{Dest: &etl.CSVWriter{W: &buf}}

	result, err := engine.Run(context.Background(), policyJob(path))
	require.NoError(t, err)

	assert.Equal(t, etl.StatusSuccess, result.Status)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 3, result.RowsRead)
	assert.Equal(t, 3, result.RowsWritten)

	want := []etl.Record{
		{Data: map[string]any{
			"state": "Alabama", "effective_date": date(2020, 3, 13), "no_visits": 1, "phone_access": 0,
			"no_volunteers": 1, "limiting_movement": 0, "screening": 1, "healthcare_support": 0,
		}},
		{Data: map[string]any{
			"state": "Alaska", "effective_date": date(2020, 3, 20), "no_visits": 0, "phone_access": 1,
			"no_volunteers": 0, "limiting_movement": 1, "screening": 0, "healthcare_support": 0,
		}},
		{Data: map[string]any{
			"state": "Arizona", "effective_date": date(2020, 3, 18), "no_visits": 0, "phone_access": 0,
			"no_volunteers": 0, "limiting_movement": 0, "screening": 0, "healthcare_support": 0,
		}},
	}
	if diff := cmp.Diff(want, result.Table.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "state,effective_date,no_visits,phone_access,no_volunteers,limiting_movement,screening,healthcare_support\n"+
		"Alabama,2020-03-13,1,0,1,0,1,0\n"+
		"Alaska,2020-03-20,0,1,0,1,0,0\n"+
		"Arizona,2020-03-18,0,0,0,0,0,0\n", buf.String())
}

func TestEngine_RunFailures(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		mutate  func(*etl.Job)
		wantErr error
	}{
		{
			name:    "unknown source",
			csv:     policiesCSV,
			mutate:  func(j *etl.Job) { j.SourceType = "ftp" },
			wantErr: etl.ErrConfig,
		},
		{
			name:    "missing output column",
			csv:     policiesCSV,
			mutate:  func(j *etl.Job) { j.Columns = append(j.Columns, "video_access") },
			wantErr: etl.ErrConfig,
		},
		{
			name:    "categories without text column",
			csv:     policiesCSV,
			mutate:  func(j *etl.Job) { j.TextField = "" },
			wantErr: etl.ErrConfig,
		},
		{
			name: "leftover marker text",
			csv: "State,Effective Date,Visitation Suspended?,Free Phone Calls?,Additional Policies\n" +
				"Alabama,3/13/2020,yes,,\n",
			wantErr: etl.ErrDataQuality,
		},
		{
			name: "bad date",
			csv: "State,Effective Date,Visitation Suspended?,Free Phone Calls?,Additional Policies\n" +
				"Alabama,pending review,X,,\n",
			wantErr: etl.ErrDataQuality,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := policyJob(writeFile(t, "policies.csv", tt.csv))
			if tt.mutate != nil {
				tt.mutate(job)
			}
			var buf bytes.Buffer
			engine := &etl.Engine{Dest: &etl.CSVWriter{W: &buf}}

			result, err := engine.Run(context.Background(), job)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, etl.StatusError, result.Status)
			assert.NotEmpty(t, result.Error)
			assert.Nil(t, result.Table)
			assert.Empty(t, buf.String())
		})
	}
}

func TestEngine_Preview(t *testing.T) {
	path := writeFile(t, "policies.csv", policiesCSV)
	engine := &etl.Engine{}

	table, err := engine.Preview(context.Background(), "csv_file", etl.SourceConfig{"filePath": path}, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []string{"state", "effective_date", "visitation_suspended", "free_phone_calls", "additional_policies"},
		table.Schema.FieldNames())
	assert.Equal(t, date(2020, 3, 13), table.Records[0].Data["effective_date"])
}

func TestLoad_CancelledContext(t *testing.T) {
	path := writeFile(t, "policies.csv", policiesCSV)
	src, err := etl.GetSource("csv_file")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = etl.Load(ctx, src, etl.SourceConfig{"filePath": path})
	assert.ErrorIs(t, err, context.Canceled)
}
