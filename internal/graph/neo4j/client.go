package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/atlas-mind/backend/pkg/circuitbreaker"
	"github.com/atlas-mind/backend/pkg/logger"
	"github.com/atlas-mind/backend/pkg/retry"
)

type Client struct {
	driver      neo4j.DriverWithContext
	database    string
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

// Node is the minimal projection of a graph node the chat pipeline consumes.
type Node struct {
	ID   string
	Name string
}

// Record is one row of a read query. Resource and Concept are nil when the
// row did not bind the corresponding alias.
type Record struct {
	Resource *Node
	Concept  *Node
}

type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Group string `json:"group"`
}

type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type,omitempty"`
}

type GraphView struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

func NewClient(uri, username, password, database string) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(
		uri,
		neo4j.BasicAuth(username, password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	ctx := context.Background()
	err = driver.VerifyConnectivity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to verify connectivity: %w", err)
	}

	cb := circuitbreaker.NewCircuitBreaker("neo4j", circuitbreaker.Config{
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          20 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       3 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("Neo4j client initialized", zap.String("uri", uri))

	return &Client{
		driver:      driver,
		database:    database,
		cb:          cb,
		retryConfig: retryConfig,
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *Client) executeWithRetry(ctx context.Context, operation func(neo4j.SessionWithContext) error) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
			defer session.Close(ctx)
			return operation(session)
		})
	})
}

func (c *Client) MergeProject(ctx context.Context, projectID, projectName string) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
	defer session.Close(ctx)

	query := `
		MERGE (p:Project {id: $id})
		SET p.name = $name
	`

	_, err := session.Run(ctx, query, map[string]interface{}{
		"id":   projectID,
		"name": projectName,
	})
	if err != nil {
		return fmt.Errorf("failed to merge project: %w", err)
	}

	logger.Debug("Project node merged", zap.String("project_id", projectID))
	return nil
}

// MergeResource creates the Resource node, attaches it to its Project, and
// optionally records the uploading user. All writes are MERGE so re-imports
// are idempotent.
func (c *Client) MergeResource(ctx context.Context, resourceID, resourceName, projectID, uploadedBy string) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
	defer session.Close(ctx)

	query := `
		MERGE (r:Resource {id: $id})
		  SET r.name = $name
		WITH r
		MATCH (p:Project {id: $project_id})
		MERGE (p)-[:HAS_RESOURCE]->(r)
	`

	params := map[string]interface{}{
		"id":         resourceID,
		"name":       resourceName,
		"project_id": projectID,
	}

	if uploadedBy != "" {
		query += `
		WITH r, p
		MATCH (u:User {id: $uploaded_by})
		MERGE (r)-[:UPLOADED_BY]->(u)
		`
		params["uploaded_by"] = uploadedBy
	}

	_, err := session.Run(ctx, query, params)
	if err != nil {
		return fmt.Errorf("failed to merge resource: %w", err)
	}

	logger.Debug("Resource node merged",
		zap.String("resource_id", resourceID),
		zap.String("project_id", projectID),
	)
	return nil
}

// LinkConcept attaches a COVERS edge from the resource to the concept with the
// given name, creating the Concept node on first sight. Concepts are matched
// by exact name equality; near-duplicate phrasings produce distinct nodes.
func (c *Client) LinkConcept(ctx context.Context, resourceID, conceptName string) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
	defer session.Close(ctx)

	query := `
		MATCH (r:Resource {id: $resource_id})
		MERGE (c:Concept {name: $concept_name})
		  ON CREATE SET c.id = randomUUID()
		MERGE (r)-[:COVERS]->(c)
	`

	_, err := session.Run(ctx, query, map[string]interface{}{
		"resource_id":  resourceID,
		"concept_name": conceptName,
	})
	if err != nil {
		return fmt.Errorf("failed to link concept: %w", err)
	}

	return nil
}

func (c *Client) MergeUser(ctx context.Context, userID, email string) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
	defer session.Close(ctx)

	query := `
		MERGE (u:User {id: $id})
		SET u.email = $email
	`

	_, err := session.Run(ctx, query, map[string]interface{}{
		"id":    userID,
		"email": email,
	})
	if err != nil {
		return fmt.Errorf("failed to merge user: %w", err)
	}

	return nil
}

// Execute runs a read query and extracts the Resource/Concept nodes bound to
// the aliases r and c, the aliases the translator instructs the model to use.
func (c *Client) Execute(ctx context.Context, cypher string) ([]Record, error) {
	var records []Record

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		result, err := session.Run(ctx, cypher, nil)
		if err != nil {
			return fmt.Errorf("failed to run query: %w", err)
		}

		for result.Next(ctx) {
			raw := result.Record()

			rec := Record{}
			if value, ok := raw.Get("r"); ok {
				rec.Resource = nodeFromValue(value)
			}
			if value, ok := raw.Get("c"); ok {
				rec.Concept = nodeFromValue(value)
			}

			if rec.Resource == nil && rec.Concept == nil {
				// Alias not bound; fall back to scanning the row for
				// labeled nodes.
				for _, value := range raw.Values {
					node, ok := value.(neo4j.Node)
					if !ok {
						continue
					}
					for _, label := range node.Labels {
						switch label {
						case "Resource":
							rec.Resource = nodeFromValue(node)
						case "Concept":
							rec.Concept = nodeFromValue(node)
						}
					}
				}
			}

			records = append(records, rec)
		}

		if err = result.Err(); err != nil {
			return fmt.Errorf("error iterating results: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	logger.Info("Graph query executed",
		zap.Int("records", len(records)),
	)

	return records, nil
}

func nodeFromValue(value interface{}) *Node {
	node, ok := value.(neo4j.Node)
	if !ok {
		return nil
	}

	id, _ := node.Props["id"].(string)
	name, _ := node.Props["name"].(string)

	if id == "" && name == "" {
		return nil
	}

	return &Node{ID: id, Name: name}
}

// ProjectGraph aggregates a project's resource and concept neighborhood into
// the node/link shape the frontend force graph renders.
func (c *Client) ProjectGraph(ctx context.Context, projectID string) (*GraphView, error) {
	view := &GraphView{
		Nodes: []GraphNode{},
		Links: []GraphLink{},
	}

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		query := `
			MATCH (p:Project {id: $project_id})
			OPTIONAL MATCH (p)-[r1:HAS_RESOURCE]->(res:Resource)
			OPTIONAL MATCH (res)-[r2:COVERS]->(c:Concept)
			RETURN p, r1, res, r2, c
		`

		result, err := session.Run(ctx, query, map[string]interface{}{
			"project_id": projectID,
		})
		if err != nil {
			return fmt.Errorf("failed to fetch project graph: %w", err)
		}

		seen := make(map[string]bool)

		for result.Next(ctx) {
			record := result.Record()

			projectValue, _ := record.Get("p")
			project := nodeFromValue(projectValue)
			if project == nil {
				continue
			}

			if !seen[project.ID] {
				seen[project.ID] = true
				view.Nodes = append(view.Nodes, GraphNode{
					ID:    project.ID,
					Label: project.Name,
					Group: "Project",
				})
			}

			resourceValue, _ := record.Get("res")
			resource := nodeFromValue(resourceValue)
			if resource != nil {
				if !seen[resource.ID] {
					seen[resource.ID] = true
					view.Nodes = append(view.Nodes, GraphNode{
						ID:    resource.ID,
						Label: resource.Name,
						Group: "Resource",
					})
					view.Links = append(view.Links, GraphLink{
						Source: project.ID,
						Target: resource.ID,
						Type:   "HAS_RESOURCE",
					})
				}
			}

			conceptValue, _ := record.Get("c")
			concept := nodeFromValue(conceptValue)
			if concept != nil && resource != nil {
				if !seen[concept.ID] {
					seen[concept.ID] = true
					view.Nodes = append(view.Nodes, GraphNode{
						ID:    concept.ID,
						Label: concept.Name,
						Group: "Concept",
					})
				}
				view.Links = append(view.Links, GraphLink{
					Source: resource.ID,
					Target: concept.ID,
					Type:   "COVERS",
				})
			}
		}

		if err = result.Err(); err != nil {
			return fmt.Errorf("error iterating results: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return view, nil
}
