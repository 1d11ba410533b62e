// Package redshiftiface provides the interface over the Redshift Data API
// client. It lets the statement executor and the health check run against a
// mock in tests.
package redshiftiface

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/redshiftdata"
)

// RedshiftDataAPI is the subset of *redshiftdata.Client the plugin calls.
type RedshiftDataAPI interface {
	ExecuteStatement(ctx context.Context, params *redshiftdata.ExecuteStatementInput, optFns ...func(*redshiftdata.Options)) (*redshiftdata.ExecuteStatementOutput, error)
	DescribeStatement(ctx context.Context, params *redshiftdata.DescribeStatementInput, optFns ...func(*redshiftdata.Options)) (*redshiftdata.DescribeStatementOutput, error)
	GetStatementResult(ctx context.Context, params *redshiftdata.GetStatementResultInput, optFns ...func(*redshiftdata.Options)) (*redshiftdata.GetStatementResultOutput, error)
	CancelStatement(ctx context.Context, params *redshiftdata.CancelStatementInput, optFns ...func(*redshiftdata.Options)) (*redshiftdata.CancelStatementOutput, error)
}

var _ RedshiftDataAPI = (*redshiftdata.Client)(nil)
