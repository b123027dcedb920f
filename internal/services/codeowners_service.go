package services

import (
	"bufio"
	"os"
	"strings"

	"github.com/gitmesh-labs/steward/pkg/logger"
)

// CodeownersService derives the set of usernames authorized to approve
// governance changes from the CODEOWNERS declaration.
type CodeownersService struct {
	path         string
	registryPath string
}

// NewCodeownersService creates a new CodeownersService. registryPath is
// the ownership token whose lines contribute approvers.
func NewCodeownersService(path, registryPath string) *CodeownersService {
	return &CodeownersService{
		path:         path,
		registryPath: registryPath,
	}
}

// AuthorizedUsers parses CODEOWNERS and returns the lowercased set of
// approvers. A missing file yields an empty set with a warning.
func (s *CodeownersService) AuthorizedUsers() map[string]bool {
	authorized := make(map[string]bool)

	file, err := os.Open(s.path)
	if err != nil {
		logger.Warnf("CODEOWNERS not found at %s", s.path)
		return authorized
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, s.registryPath) {
			continue
		}
		for _, part := range strings.Fields(line) {
			if strings.HasPrefix(part, "@") {
				authorized[strings.ToLower(strings.TrimPrefix(part, "@"))] = true
			}
		}
	}
	if err := scanner.Err(); err != nil {
		logger.WithError(err).Errorf("Error parsing CODEOWNERS at %s", s.path)
	}

	return authorized
}

// IsAuthorized reports whether username may approve governance changes
func (s *CodeownersService) IsAuthorized(username string) bool {
	return s.AuthorizedUsers()[strings.ToLower(username)]
}
