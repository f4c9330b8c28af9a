package providers

import (
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/connector"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/emissions"
)

// Spec is one provider table entry. FetchPath and TokenURL may contain
// {field} placeholders filled from the instance credentials.
type Spec struct {
	Kind        string
	DisplayName string
	BaseURL     string
	Family      emissions.Family
	Auth        connector.AuthScheme

	// APIKeyHeader carries the key instead of "Authorization: Bearer".
	APIKeyHeader string

	TokenURL string
	Scopes   []string

	AWSService string
	AWSRegion  string

	FetchPath string
	// DataKey selects the record array inside a response object; empty
	// means the response body is the array.
	DataKey string
}

var table = []Spec{
	// Utilities
	{
		Kind: "octopus_energy", DisplayName: "Octopus Energy", BaseURL: "https://api.octopus.energy/v1",
		Family: emissions.FamilyUtility, Auth: connector.AuthAPIKey,
		FetchPath: "/accounts/{account_number}/consumption", DataKey: "results",
	},
	{
		Kind: "british_gas", DisplayName: "British Gas", BaseURL: "https://api.britishgas.co.uk/v1",
		Family: emissions.FamilyUtility, Auth: connector.AuthAPIKey,
		FetchPath: "/energy/consumption", DataKey: "readings",
	},
	{
		Kind: "edf_energy", DisplayName: "EDF Energy", BaseURL: "https://api.edfenergy.com/v1",
		Family: emissions.FamilyUtility, Auth: connector.AuthAPIKey,
		FetchPath: "/consumption", DataKey: "data",
	},
	{
		Kind: "eon_next", DisplayName: "E.ON Next", BaseURL: "https://api.eonnext.com/v1",
		Family: emissions.FamilyUtility, Auth: connector.AuthAPIKey,
		FetchPath: "/consumption", DataKey: "data",
	},
	{
		Kind: "ovo_energy", DisplayName: "OVO Energy", BaseURL: "https://api.ovoenergy.com/v1",
		Family: emissions.FamilyUtility, Auth: connector.AuthAPIKey,
		FetchPath: "/usage", DataKey: "data",
	},
	{
		Kind: "scottish_power", DisplayName: "ScottishPower", BaseURL: "https://api.scottishpower.co.uk/v1",
		Family: emissions.FamilyUtility, Auth: connector.AuthBasic,
		FetchPath: "/consumption", DataKey: "data",
	},

	// Cloud
	{
		Kind: "aws_cost_explorer", DisplayName: "AWS Cost Explorer", BaseURL: "https://ce.us-east-1.amazonaws.com",
		Family: emissions.FamilyCloud, Auth: connector.AuthSigV4,
		AWSService: "ce", AWSRegion: "us-east-1",
		FetchPath: "/usage", DataKey: "usage",
	},
	{
		Kind: "azure_consumption", DisplayName: "Azure Consumption", BaseURL: "https://management.azure.com",
		Family: emissions.FamilyCloud, Auth: connector.AuthOAuthClientCredentials,
		TokenURL:  "https://login.microsoftonline.com/{tenant_id}/oauth2/v2.0/token",
		Scopes:    []string{"https://management.azure.com/.default"},
		FetchPath: "/subscriptions/{subscription_id}/providers/Microsoft.Consumption/usageDetails", DataKey: "value",
	},
	{
		Kind: "google_cloud_billing", DisplayName: "Google Cloud Billing", BaseURL: "https://cloudbilling.googleapis.com/v1",
		Family: emissions.FamilyCloud, Auth: connector.AuthOAuthClientCredentials,
		TokenURL:  "https://oauth2.googleapis.com/token",
		Scopes:    []string{"https://www.googleapis.com/auth/cloud-billing.readonly"},
		FetchPath: "/billingAccounts/{billing_account_id}/usage", DataKey: "usage",
	},
	{
		Kind: "digitalocean", DisplayName: "DigitalOcean", BaseURL: "https://api.digitalocean.com/v2",
		Family: emissions.FamilyCloud, Auth: connector.AuthAPIKey,
		FetchPath: "/customers/my/usage", DataKey: "usage",
	},

	// Transport
	{
		Kind: "samsara", DisplayName: "Samsara", BaseURL: "https://api.samsara.com",
		Family: emissions.FamilyTransport, Auth: connector.AuthAPIKey,
		FetchPath: "/fleet/vehicles/fuel-energy", DataKey: "data",
	},
	{
		Kind: "fleetio", DisplayName: "Fleetio", BaseURL: "https://secure.fleetio.com/api/v1",
		Family: emissions.FamilyTransport, Auth: connector.AuthAPIKey,
		FetchPath: "/fuel_entries", DataKey: "records",
	},
	{
		Kind: "geotab", DisplayName: "Geotab", BaseURL: "https://my.geotab.com/apiv1",
		Family: emissions.FamilyTransport, Auth: connector.AuthOAuthClientCredentials,
		TokenURL:  "https://my.geotab.com/apiv1/oauth2/token",
		FetchPath: "/vehicles/fuel", DataKey: "result",
	},
	{
		Kind: "verizon_connect", DisplayName: "Verizon Connect", BaseURL: "https://fim.api.us.fleetmatics.com",
		Family: emissions.FamilyTransport, Auth: connector.AuthOAuthClientCredentials,
		TokenURL:  "https://fim.api.us.fleetmatics.com/token",
		FetchPath: "/rad/v1/vehicles/fuel", DataKey: "data",
	},
	{
		Kind: "webfleet", DisplayName: "Webfleet", BaseURL: "https://csv.webfleet.com/extern",
		Family: emissions.FamilyTransport, Auth: connector.AuthBasic,
		FetchPath: "/vehicles/fuel", DataKey: "data",
	},

	// ERP and finance
	{
		Kind: "xero", DisplayName: "Xero", BaseURL: "https://api.xero.com/api.xro/2.0",
		Family: emissions.FamilyFinance, Auth: connector.AuthOAuthClientCredentials,
		TokenURL:  "https://identity.xero.com/connect/token",
		Scopes:    []string{"accounting.transactions.read"},
		FetchPath: "/ExpenseClaims", DataKey: "expenses",
	},
	{
		Kind: "quickbooks", DisplayName: "QuickBooks Online", BaseURL: "https://quickbooks.api.intuit.com/v3",
		Family: emissions.FamilyFinance, Auth: connector.AuthOAuthClientCredentials,
		TokenURL:  "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer",
		Scopes:    []string{"com.intuit.quickbooks.accounting"},
		FetchPath: "/company/{realm_id}/purchases", DataKey: "expenses",
	},
	{
		Kind: "sage_intacct", DisplayName: "Sage Intacct", BaseURL: "https://api.intacct.com/ia/api/v1",
		Family: emissions.FamilyFinance, Auth: connector.AuthOAuthClientCredentials,
		TokenURL:  "https://api.intacct.com/ia/api/v1/oauth2/token",
		FetchPath: "/objects/accounts-payable/bill", DataKey: "expenses",
	},
	{
		Kind: "netsuite", DisplayName: "NetSuite", BaseURL: "https://suitetalk.api.netsuite.com/services/rest",
		Family: emissions.FamilyFinance, Auth: connector.AuthOAuthClientCredentials,
		TokenURL:  "https://{account_id}.suitetalk.api.netsuite.com/services/rest/auth/oauth2/v1/token",
		FetchPath: "/record/v1/expenseReport", DataKey: "items",
	},
	{
		Kind: "sap_concur", DisplayName: "SAP Concur", BaseURL: "https://us.api.concursolutions.com",
		Family: emissions.FamilyFinance, Auth: connector.AuthBasic,
		FetchPath: "/api/v3.0/expense/entries", DataKey: "Items",
	},
	{
		Kind: "freeagent", DisplayName: "FreeAgent", BaseURL: "https://api.freeagent.com/v2",
		Family: emissions.FamilyFinance, Auth: connector.AuthAPIKey,
		FetchPath: "/expenses", DataKey: "expenses",
	},
}

// Table returns a copy of the built-in provider table.
func Table() []Spec {
	out := make([]Spec, len(table))
	copy(out, table)
	return out
}
