package compose

// =============================================================================
// Start Ordering
// =============================================================================

// StartOrder sorts services so dependencies start before their dependents
// (Kahn's algorithm). The sidecars (database, cache) come up before the API
// process that connects to them.
//
// Cycles are rejected at parse time; if one slips through, remaining services
// are appended unordered as a fallback rather than dropped.
func StartOrder(services []Service) []Service {
	if len(services) == 0 {
		return services
	}

	serviceMap := make(map[string]Service)
	inDegree := make(map[string]int)
	dependents := make(map[string][]string)

	for _, svc := range services {
		serviceMap[svc.Name] = svc
		inDegree[svc.Name] = len(svc.DependsOn)
		for _, dep := range svc.DependsOn {
			dependents[dep] = append(dependents[dep], svc.Name)
		}
	}

	// Seed the queue in declaration order so the result is deterministic.
	var queue []string
	for _, svc := range services {
		if inDegree[svc.Name] == 0 {
			queue = append(queue, svc.Name)
		}
	}

	var result []Service
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		if svc, ok := serviceMap[name]; ok {
			result = append(result, svc)
		}

		for _, dep := range dependents[name] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(result) < len(services) {
		seen := make(map[string]bool, len(result))
		for _, r := range result {
			seen[r.Name] = true
		}
		for _, svc := range services {
			if !seen[svc.Name] {
				result = append(result, svc)
			}
		}
	}

	return result
}

// StopOrder is the reverse of StartOrder: dependents stop before the services
// they depend on.
func StopOrder(services []Service) []Service {
	ordered := StartOrder(services)
	reversed := make([]Service, len(ordered))
	for i, svc := range ordered {
		reversed[len(ordered)-1-i] = svc
	}
	return reversed
}
