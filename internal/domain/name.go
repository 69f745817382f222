// Package domain holds the deploy and test-run data returned by the metadata service.
package domain

// QualifiedName joins namespace and name with a dot. Without a namespace the bare name is used.
func QualifiedName(namespace, name string) string {
	if namespace == "" {
		return name
	}

	return namespace + "." + name
}
