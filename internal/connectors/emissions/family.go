package emissions

import (
	"fmt"
	"strings"
)

// Family groups providers by domain. It selects the record shape and the
// formula; lifecycle handling is identical for every family.
type Family string

const (
	FamilyUtility   Family = "utility"
	FamilyCloud     Family = "cloud"
	FamilyTransport Family = "transport"
	FamilyFinance   Family = "finance"
)

func ParseFamily(v string) (Family, error) {
	f := Family(strings.ToLower(strings.TrimSpace(v)))
	switch f {
	case FamilyUtility, FamilyCloud, FamilyTransport, FamilyFinance:
		return f, nil
	default:
		return "", fmt.Errorf("unknown provider family %q", v)
	}
}
