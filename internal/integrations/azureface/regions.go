package azureface

import (
	"fmt"
	"sort"
)

// azureRegions maps region names to their Cognitive Services endpoints.
var azureRegions = map[string]string{
	"eastus":        "https://eastus.api.cognitive.microsoft.com",
	"eastus2":       "https://eastus2.api.cognitive.microsoft.com",
	"westus":        "https://westus.api.cognitive.microsoft.com",
	"westus2":       "https://westus2.api.cognitive.microsoft.com",
	"westeurope":    "https://westeurope.api.cognitive.microsoft.com",
	"northeurope":   "https://northeurope.api.cognitive.microsoft.com",
	"southeastasia": "https://southeastasia.api.cognitive.microsoft.com",
	"eastasia":      "https://eastasia.api.cognitive.microsoft.com",
}

// EndpointForRegion resolves an Azure region name to its API endpoint.
func EndpointForRegion(region string) (string, error) {
	endpoint, ok := azureRegions[region]
	if !ok {
		return "", fmt.Errorf("unknown azure region %q, known regions: %v", region, Regions())
	}
	return endpoint, nil
}

// Regions lists the known Azure region names in stable order.
func Regions() []string {
	names := make([]string, 0, len(azureRegions))
	for name := range azureRegions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
