// Package kms generates and safeguards the deployment root of trust.
package kms
