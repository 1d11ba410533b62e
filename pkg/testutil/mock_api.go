package testutil

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/redshiftdata"
	"github.com/aws/aws-sdk-go-v2/service/redshiftdata/types"
)

// MockDataAPI implements redshiftiface.RedshiftDataAPI for tests. Statuses
// are returned by DescribeStatement in order, the last one repeating. Pages
// are returned by GetStatementResult in order.
type MockDataAPI struct {
	ExecuteErr     error
	DescribeErr    error
	ResultErr      error
	CancelErr      error
	Statuses       []types.StatusString
	FailureMessage string
	NoResultSet    bool
	Pages          []Page

	mu            sync.Mutex
	describeCalls int
	executed      []*redshiftdata.ExecuteStatementInput
	cancelled     []string
}

// Page is one GetStatementResult response.
type Page struct {
	Columns []types.ColumnMetadata
	Records [][]types.Field
}

// ExecuteStatement records the input and returns a statement ID.
func (m *MockDataAPI) ExecuteStatement(ctx context.Context, params *redshiftdata.ExecuteStatementInput, _ ...func(*redshiftdata.Options)) (*redshiftdata.ExecuteStatementOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ExecuteErr != nil {
		return nil, m.ExecuteErr
	}
	m.executed = append(m.executed, params)
	return &redshiftdata.ExecuteStatementOutput{Id: aws.String(fmt.Sprintf("stmt-%d", len(m.executed)))}, nil
}

// DescribeStatement walks through Statuses.
func (m *MockDataAPI) DescribeStatement(ctx context.Context, params *redshiftdata.DescribeStatementInput, _ ...func(*redshiftdata.Options)) (*redshiftdata.DescribeStatementOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DescribeErr != nil {
		return nil, m.DescribeErr
	}

	status := types.StatusStringFinished
	if len(m.Statuses) > 0 {
		i := m.describeCalls
		if i >= len(m.Statuses) {
			i = len(m.Statuses) - 1
		}
		status = m.Statuses[i]
	}
	m.describeCalls++

	out := &redshiftdata.DescribeStatementOutput{
		Id:           params.Id,
		Status:       status,
		HasResultSet: aws.Bool(!m.NoResultSet),
	}
	if status == types.StatusStringFailed {
		out.Error = aws.String(m.FailureMessage)
	}
	return out, nil
}

// GetStatementResult returns Pages, chained by NextToken.
func (m *MockDataAPI) GetStatementResult(ctx context.Context, params *redshiftdata.GetStatementResultInput, _ ...func(*redshiftdata.Options)) (*redshiftdata.GetStatementResultOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ResultErr != nil {
		return nil, m.ResultErr
	}

	i := 0
	if tok := aws.ToString(params.NextToken); tok != "" {
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("bad next token %q", tok)
		}
		i = n
	}
	if i >= len(m.Pages) {
		return &redshiftdata.GetStatementResultOutput{}, nil
	}

	out := &redshiftdata.GetStatementResultOutput{
		ColumnMetadata: m.Pages[i].Columns,
		Records:        m.Pages[i].Records,
	}
	if i+1 < len(m.Pages) {
		out.NextToken = aws.String(strconv.Itoa(i + 1))
	}
	return out, nil
}

// CancelStatement records the cancelled statement ID.
func (m *MockDataAPI) CancelStatement(ctx context.Context, params *redshiftdata.CancelStatementInput, _ ...func(*redshiftdata.Options)) (*redshiftdata.CancelStatementOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CancelErr != nil {
		return nil, m.CancelErr
	}
	m.cancelled = append(m.cancelled, aws.ToString(params.Id))
	return &redshiftdata.CancelStatementOutput{Status: aws.Bool(true)}, nil
}

// Executed returns the ExecuteStatement inputs seen so far.
func (m *MockDataAPI) Executed() []*redshiftdata.ExecuteStatementInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*redshiftdata.ExecuteStatementInput, len(m.executed))
	copy(out, m.executed)
	return out
}

// Cancelled returns the IDs passed to CancelStatement.
func (m *MockDataAPI) Cancelled() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.cancelled))
	copy(out, m.cancelled)
	return out
}

// DescribeCalls returns how many times DescribeStatement ran.
func (m *MockDataAPI) DescribeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.describeCalls
}
