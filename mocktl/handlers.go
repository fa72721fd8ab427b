package mocktl

import (
	"strconv"
)

// The handlers in this file run under the service lock. They mimic TestLink
// 1.9 behavior closely enough for client tests, including its habit of
// serializing most numbers and booleans as strings.

func argsOf(params []interface{}) map[string]interface{} {
	if len(params) > 0 {
		if m, ok := params[0].(map[string]interface{}); ok {
			return m
		}
	}
	return map[string]interface{}{}
}

func stringArg(args map[string]interface{}, name string) string {
	if s, ok := args[name].(string); ok {
		return s
	}
	return ""
}

func intArg(args map[string]interface{}, name string) int {
	switch v := args[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

func boolArg(args map[string]interface{}, name string) bool {
	switch v := args[name].(type) {
	case bool:
		return v
	case int:
		return v != 0
	case string:
		return v == "1" || v == "true"
	}
	return false
}

func (s *Service) checkDevKey(args map[string]interface{}) error {
	if s.devKey != "" && stringArg(args, "devKey") != s.devKey {
		return &apiError{2000, "Can not authenticate client: invalid developer key"}
	}
	return nil
}

func (s *Service) ping([]interface{}) (interface{}, error) {
	return "Hello!", nil
}

func (s *Service) getProjects(params []interface{}) (interface{}, error) {
	if err := s.checkDevKey(argsOf(params)); err != nil {
		return nil, err
	}
	out := make([]interface{}, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, projectPayload(p))
	}
	return out, nil
}

func projectPayload(p *Project) map[string]interface{} {
	return map[string]interface{}{
		"id":        strconv.Itoa(p.ID),
		"name":      p.Name,
		"prefix":    p.Prefix,
		"notes":     p.Notes,
		"active":    "1",
		"is_public": "1",
		"opt": map[string]interface{}{
			"requirementsEnabled": "1",
			"testPriorityEnabled": "1",
			"automationEnabled":   "1",
			"inventoryEnabled":    "0",
		},
	}
}

func (s *Service) createTestProject(params []interface{}) (interface{}, error) {
	args := argsOf(params)
	if err := s.checkDevKey(args); err != nil {
		return nil, err
	}
	name := stringArg(args, "testprojectname")
	prefix := stringArg(args, "testcaseprefix")
	if name == "" || prefix == "" {
		return nil, &apiError{7001, "Missing required parameter: testprojectname"}
	}
	for _, p := range s.projects {
		if p.Name == name {
			return nil, &apiError{7011, "Test project name already exists: " + name}
		}
	}
	p := &Project{ID: s.allocID(), Name: name, Prefix: prefix, Notes: stringArg(args, "notes")}
	s.projects = append(s.projects, p)
	return []interface{}{map[string]interface{}{
		"operation": "createTestProject",
		"status":    true,
		"id":        strconv.Itoa(p.ID),
		"message":   "Success!",
	}}, nil
}

func (s *Service) findProject(id int) *Project {
	for _, p := range s.projects {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Service) getFirstLevelSuites(params []interface{}) (interface{}, error) {
	args := argsOf(params)
	if err := s.checkDevKey(args); err != nil {
		return nil, err
	}
	project := s.findProject(intArg(args, "testprojectid"))
	if project == nil {
		return nil, &apiError{7000, "The Test Project ID does not exist!"}
	}
	out := make([]interface{}, 0, len(project.Suites))
	for _, suite := range project.Suites {
		out = append(out, map[string]interface{}{
			"id":        strconv.Itoa(suite.ID),
			"name":      suite.Name,
			"parent_id": strconv.Itoa(project.ID),
			"details":   "",
		})
	}
	return out, nil
}

func (s *Service) createTestCase(params []interface{}) (interface{}, error) {
	args := argsOf(params)
	if err := s.checkDevKey(args); err != nil {
		return nil, err
	}
	project := s.findProject(intArg(args, "testprojectid"))
	if project == nil {
		return nil, &apiError{7000, "The Test Project ID does not exist!"}
	}
	suiteID := intArg(args, "testsuiteid")
	found := false
	for _, suite := range project.Suites {
		if suite.ID == suiteID {
			found = true
			break
		}
	}
	if !found {
		return nil, &apiError{8000, "The Test Suite ID does not exist!"}
	}

	name := stringArg(args, "testcasename")
	steps, _ := args["steps"].([]interface{})
	checkDuplicate := boolArg(args, "checkduplicatedname")
	action := stringArg(args, "actiononduplicatedname")

	var existing *CreatedCase
	for _, c := range s.cases {
		if c.Name == name && c.SuiteID == suiteID {
			existing = c
			break
		}
	}
	if existing != nil && checkDuplicate {
		switch action {
		case "create_newversion":
			existing.Version++
			existing.Summary = stringArg(args, "summary")
			existing.Preconditions = stringArg(args, "preconditions")
			existing.Steps = steps
			return createdCasePayload(existing, true), nil
		case "block":
			return nil, &apiError{12000, "A test case with this name already exists: " + name}
		}
	}

	c := &CreatedCase{
		ID:            s.allocID(),
		ExternalID:    len(s.cases) + 1,
		Version:       1,
		Name:          name,
		SuiteID:       suiteID,
		ProjectID:     project.ID,
		Author:        stringArg(args, "authorlogin"),
		Summary:       stringArg(args, "summary"),
		Preconditions: stringArg(args, "preconditions"),
		Steps:         steps,
	}
	s.cases = append(s.cases, c)
	return createdCasePayload(c, false), nil
}

func createdCasePayload(c *CreatedCase, hasDuplicate bool) interface{} {
	return []interface{}{map[string]interface{}{
		"operation": "createTestCase",
		"status":    true,
		"id":        strconv.Itoa(c.ID),
		"additionalInfo": map[string]interface{}{
			"id":             strconv.Itoa(c.ID),
			"external_id":    strconv.Itoa(c.ExternalID),
			"version_number": strconv.Itoa(c.Version),
			"has_duplicate":  hasDuplicate,
		},
		"message": "Success!",
	}}
}

func (s *Service) assignRequirements(params []interface{}) (interface{}, error) {
	args := argsOf(params)
	if err := s.checkDevKey(args); err != nil {
		return nil, err
	}
	caseID := intArg(args, "testcaseid")
	found := false
	for _, c := range s.cases {
		if c.ID == caseID {
			found = true
			break
		}
	}
	if !found {
		return nil, &apiError{5000, "The Test Case ID does not exist!"}
	}
	groups, _ := args["requirements"].([]interface{})
	for _, g := range groups {
		group, ok := g.(map[string]interface{})
		if !ok {
			continue
		}
		specID := intArg(group, "req_spec")
		ids, _ := group["requirements"].([]interface{})
		for _, idValue := range ids {
			link := RequirementLink{SpecID: specID}
			switch id := idValue.(type) {
			case int:
				link.RequirementID = id
			case float64:
				link.RequirementID = int(id)
			case string:
				link.RequirementID, _ = strconv.Atoi(id)
			}
			s.requirements[caseID] = append(s.requirements[caseID], link)
		}
	}
	return map[string]interface{}{"status": true, "message": "Success!"}, nil
}

func (s *Service) getTestPlanByName(params []interface{}) (interface{}, error) {
	args := argsOf(params)
	if err := s.checkDevKey(args); err != nil {
		return nil, err
	}
	planName := stringArg(args, "testplanname")
	projectName := stringArg(args, "testprojectname")
	for _, plan := range s.plans {
		if plan.Name == planName && plan.Project == projectName {
			return []interface{}{map[string]interface{}{
				"id":        strconv.Itoa(plan.ID),
				"name":      plan.Name,
				"notes":     "",
				"active":    "1",
				"is_public": "1",
			}}, nil
		}
	}
	return nil, &apiError{3033, "Cannot find test plan with name: " + planName}
}

func (s *Service) getLatestBuild(params []interface{}) (interface{}, error) {
	args := argsOf(params)
	if err := s.checkDevKey(args); err != nil {
		return nil, err
	}
	planID := intArg(args, "testplanid")
	var latest *Build
	for _, b := range s.builds {
		if b.PlanID == planID && (latest == nil || b.ID > latest.ID) {
			latest = b
		}
	}
	if latest == nil {
		return []interface{}{}, nil
	}
	return map[string]interface{}{
		"id":          strconv.Itoa(latest.ID),
		"testplan_id": strconv.Itoa(latest.PlanID),
		"name":        latest.Name,
		"notes":       latest.Notes,
	}, nil
}

func (s *Service) createBuild(params []interface{}) (interface{}, error) {
	args := argsOf(params)
	if err := s.checkDevKey(args); err != nil {
		return nil, err
	}
	planID := intArg(args, "testplanid")
	found := false
	for _, plan := range s.plans {
		if plan.ID == planID {
			found = true
			break
		}
	}
	if !found {
		return nil, &apiError{3000, "The Test Plan ID does not exist!"}
	}
	b := &Build{
		ID:     s.allocID(),
		PlanID: planID,
		Name:   stringArg(args, "buildname"),
		Notes:  stringArg(args, "buildnotes"),
	}
	s.builds = append(s.builds, b)
	return []interface{}{map[string]interface{}{
		"operation": "createBuild",
		"status":    true,
		"id":        strconv.Itoa(b.ID),
		"message":   "Success!",
	}}, nil
}

func (s *Service) reportTCResult(params []interface{}) (interface{}, error) {
	args := argsOf(params)
	if err := s.checkDevKey(args); err != nil {
		return nil, err
	}
	caseID := intArg(args, "testcaseid")
	found := false
	for _, c := range s.cases {
		if c.ID == caseID {
			found = true
			break
		}
	}
	if !found {
		return nil, &apiError{5000, "The Test Case ID does not exist!"}
	}
	e := &Execution{
		ID:      s.allocID(),
		CaseID:  caseID,
		PlanID:  intArg(args, "testplanid"),
		BuildID: intArg(args, "buildid"),
		Status:  stringArg(args, "status"),
		Notes:   stringArg(args, "notes"),
	}
	s.executions = append(s.executions, e)
	return []interface{}{map[string]interface{}{
		"operation": "reportTCResult",
		"status":    true,
		"overwrite": false,
		"id":        strconv.Itoa(e.ID),
		"message":   "Success!",
	}}, nil
}

func (s *Service) uploadExecutionAttachment(params []interface{}) (interface{}, error) {
	args := argsOf(params)
	if err := s.checkDevKey(args); err != nil {
		return nil, err
	}
	executionID := intArg(args, "executionid")
	found := false
	for _, e := range s.executions {
		if e.ID == executionID {
			found = true
			break
		}
	}
	if !found {
		return nil, &apiError{6004, "The Execution ID does not exist!"}
	}
	a := &UploadedAttachment{
		ExecutionID: executionID,
		Title:       stringArg(args, "title"),
		Description: stringArg(args, "description"),
		FileName:    stringArg(args, "filename"),
		FileType:    stringArg(args, "filetype"),
		Content:     stringArg(args, "content"),
	}
	s.attachments = append(s.attachments, a)
	return map[string]interface{}{
		"file_name":   a.FileName,
		"file_type":   a.FileType,
		"title":       a.Title,
		"description": a.Description,
		"size":        strconv.Itoa(len(a.Content)),
	}, nil
}

func (s *Service) getCustomFieldValue(params []interface{}) (interface{}, error) {
	args := argsOf(params)
	if err := s.checkDevKey(args); err != nil {
		return nil, err
	}
	projectID := intArg(args, "testprojectid")
	caseExternalID := stringArg(args, "testcaseexternalid")
	fieldName := stringArg(args, "customfieldname")
	for i, f := range s.customFields {
		if f.projectID == projectID && f.caseExternalID == caseExternalID && f.name == fieldName {
			return map[string]interface{}{
				"id":              strconv.Itoa(i + 1),
				"name":            f.name,
				"label":           f.name,
				"type":            "0",
				"value":           f.value,
				"default_value":   "",
				"possible_values": "",
			}, nil
		}
	}
	return nil, &apiError{9003, "The Custom Field does not exist!"}
}
