package store

import "sort"

// Environment is a named flat variable map persisted for reuse. At run
// time it seeds one layer of the template scope.

func (s *Store) loadEnvironments() (map[string]map[string]string, error) {
	envs := make(map[string]map[string]string)
	if _, err := s.readJSONFile(s.environmentsPath(), &envs); err != nil {
		return nil, err
	}
	return envs, nil
}

// SaveEnvironment writes a full variable map under name, replacing any
// previous contents.
func (s *Store) SaveEnvironment(name string, variables map[string]string) error {
	return s.withLock(s.environmentsPath(), func() error {
		envs, err := s.loadEnvironments()
		if err != nil {
			return err
		}
		copied := make(map[string]string, len(variables))
		for k, v := range variables {
			copied[k] = v
		}
		envs[name] = copied
		return s.writeFileAtomic(s.environmentsPath(), envs)
	})
}

// SetEnvironmentVariable upserts a single variable, creating the
// environment on first use.
func (s *Store) SetEnvironmentVariable(env, key, value string) error {
	return s.withLock(s.environmentsPath(), func() error {
		envs, err := s.loadEnvironments()
		if err != nil {
			return err
		}
		if envs[env] == nil {
			envs[env] = make(map[string]string)
		}
		envs[env][key] = value
		return s.writeFileAtomic(s.environmentsPath(), envs)
	})
}

// GetEnvironment loads the variable map stored under name.
func (s *Store) GetEnvironment(name string) (map[string]string, error) {
	envs, err := s.loadEnvironments()
	if err != nil {
		return nil, err
	}
	variables, ok := envs[name]
	if !ok {
		return nil, &Error{Kind: KindNotFound, Name: name}
	}
	return variables, nil
}

// ListEnvironments returns the stored environment names, sorted.
func (s *Store) ListEnvironments() ([]string, error) {
	envs, err := s.loadEnvironments()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(envs))
	for name := range envs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// DeleteEnvironment removes an environment; unknown names fail with
// not-found.
func (s *Store) DeleteEnvironment(name string) error {
	return s.withLock(s.environmentsPath(), func() error {
		envs, err := s.loadEnvironments()
		if err != nil {
			return err
		}
		if _, ok := envs[name]; !ok {
			return &Error{Kind: KindNotFound, Name: name}
		}
		delete(envs, name)
		return s.writeFileAtomic(s.environmentsPath(), envs)
	})
}
