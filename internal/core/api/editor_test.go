package api

import (
	"context"
	"net"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/solatis/rulebook/internal/core/config"
	"github.com/solatis/rulebook/internal/interchange"
	"github.com/solatis/rulebook/internal/rules"
	"github.com/solatis/rulebook/internal/types"
)

const venousImport = `[
  {"id": 1, "name": "Venous", "rules": [
    {"id": 2, "unitName": "s", "findingName": "GSV incompetent", "comparator": ">=", "measurement": "GSV reflux time", "comparedValue": 0.5, "action": "Reflux"},
    {"id": 3, "unitName": "", "findingName": "No thrombus", "comparator": "not present", "measurement": "Thrombus", "comparedValue": -1, "action": "Normal"}
  ]},
  {"id": 4, "name": "Arterial", "rules": []}
]`

func newTestClient(t *testing.T) (*Client, *rules.Store) {
	t.Helper()

	store := rules.NewStore(zerolog.Nop(), nil)
	cfg := config.Default().Server
	cfg.MaxImportBytes = 4096
	service, err := NewEditorService(store, &cfg, zerolog.Nop())
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterRulesEditorServer(srv, service)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewClient(conn), store
}

func TestNewEditorService_Validation(t *testing.T) {
	cfg := config.Default().Server
	_, err := NewEditorService(nil, &cfg, zerolog.Nop())
	assert.Error(t, err)
	_, err = NewEditorService(rules.NewStore(zerolog.Nop(), nil), nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestGetState_Initial(t *testing.T) {
	client, store := newTestClient(t)

	view, err := client.GetState(context.Background())
	require.NoError(t, err)

	assert.Empty(t, view.State.RuleSets)
	assert.Nil(t, view.State.SelectedRuleSetID)
	assert.False(t, view.State.IsEditMode)
	assert.Equal(t, string(store.Session()), view.Session)
	assert.Len(t, view.ETag, 64)
}

func TestImport_ReplacesAndSelectsFirst(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	// two new rulesets leave id 2 selected in edit mode; id 2 is absent from the import
	for i := 0; i < 2; i++ {
		_, err := client.Dispatch(ctx, rules.CmdAddNewRuleSet, nil)
		require.NoError(t, err)
	}

	view, err := client.Import(ctx, venousImport)
	require.NoError(t, err)

	require.Len(t, view.State.RuleSets, 2)
	assert.Equal(t, "Venous", view.State.RuleSets[0].Name)
	assert.Equal(t, types.ComparatorNotPresent, view.State.RuleSets[0].Rules[1].Comparator)
	require.NotNil(t, view.State.SelectedRuleSetID)
	assert.Equal(t, types.ID(1), *view.State.SelectedRuleSetID)
	assert.False(t, view.State.IsEditMode)
}

func TestImport_FailureLeavesStateUnchanged(t *testing.T) {
	client, store := newTestClient(t)
	ctx := context.Background()

	before, err := client.Import(ctx, venousImport)
	require.NoError(t, err)

	tests := []struct {
		name    string
		text    string
		message string
	}{
		{"malformed", `[{"id": 1,`, "Error parsing JSON: "},
		{"not an array", `{"id": 1}`, "Invalid JSON format. Expected an array of rulesets."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Import(ctx, tt.text)
			require.Error(t, err)
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
			assert.True(t, strings.HasPrefix(status.Convert(err).Message(), tt.message), "message = %q", status.Convert(err).Message())

			assert.Equal(t, before.State.RuleSets, store.State().RuleSets)
		})
	}
}

func TestImport_TooLarge(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.Import(context.Background(), "["+strings.Repeat(" ", 5000)+"]")
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Contains(t, err.Error(), "4096")
}

func TestDispatch_EditingSession(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.Import(ctx, venousImport)
	require.NoError(t, err)

	_, err = client.Dispatch(ctx, rules.CmdSetEditMode, map[string]any{"enabled": true})
	require.NoError(t, err)
	_, err = client.Dispatch(ctx, rules.CmdUpdateRuleSetName, map[string]any{"name": "Venous (legs)"})
	require.NoError(t, err)
	_, err = client.Dispatch(ctx, rules.CmdSaveRuleSetName, nil)
	require.NoError(t, err)

	view, err := client.Dispatch(ctx, rules.CmdUpdateRule, map[string]any{
		"ruleId":  2,
		"updates": map[string]any{"comparator": "is", "unitName": "s"},
	})
	require.NoError(t, err)

	rs := view.State.RuleSets[0]
	assert.Equal(t, "Venous (legs)", rs.Name)
	assert.Equal(t, types.ComparatorIs, rs.Rules[0].Comparator)
	assert.Equal(t, types.NotApplicable, rs.Rules[0].ComparedValue)
	assert.Equal(t, "", rs.Rules[0].UnitName)

	view, err = client.Dispatch(ctx, rules.CmdMoveRule, map[string]any{"fromIndex": 1, "toIndex": 0})
	require.NoError(t, err)
	assert.Equal(t, types.ID(3), view.State.RuleSets[0].Rules[0].ID)
}

func TestDispatch_ETagTracksCatalog(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	imported, err := client.Import(ctx, venousImport)
	require.NoError(t, err)

	selected, err := client.Dispatch(ctx, rules.CmdSelectRuleSet, map[string]any{"id": 4})
	require.NoError(t, err)
	assert.Equal(t, imported.ETag, selected.ETag, "selection does not change the catalog")

	copied, err := client.Dispatch(ctx, rules.CmdCopyRuleSet, nil)
	require.NoError(t, err)
	assert.NotEqual(t, selected.ETag, copied.ETag)
	assert.Equal(t, "Arterial_(1)", copied.State.RuleSets[2].Name)
}

func TestDispatch_Errors(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.Import(ctx, venousImport)
	require.NoError(t, err)

	tests := []struct {
		name     string
		op       string
		args     any
		wantCode codes.Code
		wantErr  error
	}{
		{"unknown op", "renameEverything", nil, codes.InvalidArgument, nil},
		{"empty op", "", nil, codes.InvalidArgument, nil},
		{"bad args", rules.CmdMoveRule, map[string]any{"fromIndex": "first"}, codes.InvalidArgument, nil},
		{"move out of range", rules.CmdMoveRule, map[string]any{"fromIndex": 0, "toIndex": 9}, codes.FailedPrecondition, types.ErrIndexOutOfRange},
		{"select unknown", rules.CmdSelectRuleSet, map[string]any{"id": 99}, codes.NotFound, types.ErrRuleSetNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Dispatch(ctx, tt.op, tt.args)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, status.Code(err))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestExport(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.Import(ctx, venousImport)
	require.NoError(t, err)

	text, err := client.Export(ctx, interchange.FormatJSON)
	require.NoError(t, err)
	reimported, err := interchange.ParseImport([]byte(text))
	require.NoError(t, err)
	assert.Len(t, reimported, 2)

	doc, err := client.Export(ctx, interchange.FormatDocument)
	require.NoError(t, err)
	assert.Contains(t, doc, `"rule_sets"`)

	yamlText, err := client.Export(ctx, interchange.FormatYAML)
	require.NoError(t, err)
	assert.Contains(t, yamlText, "name: Venous")

	_, err = client.Export(ctx, "toml")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestEvaluate(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.Evaluate(ctx, nil)
	assert.ErrorIs(t, err, types.ErrNoSelection)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = client.Import(ctx, venousImport)
	require.NoError(t, err)

	result, err := client.Evaluate(ctx, types.Payload(`{"GSV reflux time": 0.9}`))
	require.NoError(t, err)
	assert.Equal(t, types.ID(1), result.RuleSetID)
	require.Len(t, result.Findings, 2)
	assert.Equal(t, "GSV incompetent", result.Findings[0].FindingName)
	assert.Equal(t, 0.9, result.Findings[0].Value)
	assert.Equal(t, "No thrombus", result.Findings[1].FindingName)
	assert.Nil(t, result.Findings[1].Value)
}
