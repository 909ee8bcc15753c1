package gen

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemaforge/internal/diag"
	"github.com/tordrt/schemaforge/internal/migrate"
	"github.com/tordrt/schemaforge/internal/refgraph"
	"github.com/tordrt/schemaforge/internal/schema"
)

var testBase = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// blogSchema is the users/posts pair with a cascade-delete reference, the
// referencing field named per convention unless srcField says otherwise.
func blogSchema(srcField string) *schema.Schema {
	return &schema.Schema{
		Tables: []schema.Table{
			{
				ID:   "t-users",
				Name: "users",
				Fields: []schema.Field{
					{ID: "f-uid", Name: "id", Type: schema.Type{Kind: schema.KindSerial}, PrimaryKey: true, AutoIncrement: true},
					{ID: "f-email", Name: "email", Type: schema.Type{Kind: schema.KindVarchar, Size: 255}, Unique: true},
				},
			},
			{
				ID:   "t-posts",
				Name: "posts",
				Fields: []schema.Field{
					{ID: "f-pid", Name: "id", Type: schema.Type{Kind: schema.KindSerial}, PrimaryKey: true, AutoIncrement: true},
					{ID: "f-fk", Name: srcField, Type: schema.Type{Kind: schema.KindInt}},
				},
				Indexes: []schema.Index{{Fields: []string{srcField}}},
			},
		},
		References: []schema.Reference{{
			ID:            "r-1",
			SourceTableID: "t-posts",
			SourceFieldID: "f-fk",
			TargetTableID: "t-users",
			TargetFieldID: "f-uid",
			OnUpdate:      schema.ActionRestrict,
			OnDelete:      schema.ActionCascade,
			Cardinality:   schema.ManyToOne,
		}},
	}
}

func renderBlog(t *testing.T, srcField string, target schema.Dialect, opts Options) ([]Artifact, *diag.Set) {
	t.Helper()
	s := blogSchema(srcField)
	diags := &diag.Set{}
	edges, err := refgraph.Resolve(s, diags)
	require.NoError(t, err)
	plan := migrate.Order(s, edges, migrate.NewSequencer(testBase))
	artifacts, err := Render(plan, target, opts, diags)
	require.NoError(t, err)
	return artifacts, diags
}

func TestRenderPostgresEndToEnd(t *testing.T) {
	artifacts, _ := renderBlog(t, "user_id", schema.DialectPostgres, Options{})

	// Three steps, each with an up and a down artifact.
	require.Len(t, artifacts, 6)

	assert.Equal(t, "2024_01_01_000000_create_users.up.sql", artifacts[0].Filename)
	assert.Equal(t, "2024_01_01_000001_create_posts.up.sql", artifacts[1].Filename)
	assert.Equal(t, "2024_01_01_000002_attach_fks_posts.up.sql", artifacts[2].Filename)

	// Downs follow in reverse sequence order.
	assert.Equal(t, "2024_01_01_000002_attach_fks_posts.down.sql", artifacts[3].Filename)
	assert.Equal(t, "2024_01_01_000001_create_posts.down.sql", artifacts[4].Filename)
	assert.Equal(t, "2024_01_01_000000_create_users.down.sql", artifacts[5].Filename)

	users := artifacts[0].Content
	assert.Contains(t, users, "CREATE TABLE users (")
	assert.Contains(t, users, "id SERIAL PRIMARY KEY")
	assert.Contains(t, users, "email VARCHAR(255) NOT NULL UNIQUE")

	attach := artifacts[2].Content
	assert.Contains(t, attach,
		"ALTER TABLE posts ADD CONSTRAINT posts_user_id_fkey FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE;")
	assert.NotContains(t, attach, "ON UPDATE", "restrict must stay implicit")

	assert.Contains(t, artifacts[3].Content, "ALTER TABLE posts DROP CONSTRAINT posts_user_id_fkey;")
	assert.Contains(t, artifacts[4].Content, "DROP TABLE IF EXISTS posts;")
}

func TestRenderNamingConventionDeviation(t *testing.T) {
	artifacts, diags := renderBlog(t, "author", schema.DialectPostgres, Options{})

	attach := artifacts[2].Content
	assert.Contains(t, attach, "ADD CONSTRAINT fk_posts_author_users_id")
	assert.Contains(t, attach, "ON DELETE CASCADE")

	suggestions := diags.Suggestions()
	require.NotEmpty(t, suggestions)
	var found bool
	for _, d := range suggestions {
		if d.Code == diag.CodeNamingConvention && strings.Contains(d.Message, "user_id") {
			found = true
		}
	}
	assert.True(t, found, "expected a rename suggestion mentioning user_id")
}

func TestRenderDeterministic(t *testing.T) {
	a, _ := renderBlog(t, "user_id", schema.DialectPostgres, Options{})
	b, _ := renderBlog(t, "user_id", schema.DialectPostgres, Options{})

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Filename, b[i].Filename)
		assert.Equal(t, a[i].Content, b[i].Content, "artifact %s differs between identical runs", a[i].Filename)
	}
}

func TestRenderMySQL(t *testing.T) {
	artifacts, _ := renderBlog(t, "user_id", schema.DialectMySQL, Options{})

	users := artifacts[0].Content
	assert.Contains(t, users, "id INT AUTO_INCREMENT PRIMARY KEY")

	attachDown := artifacts[3].Content
	assert.Contains(t, attachDown, "ALTER TABLE posts DROP FOREIGN KEY posts_user_id_fkey;")
}

func TestRenderSQLiteInlinesReferences(t *testing.T) {
	artifacts, _ := renderBlog(t, "user_id", schema.DialectSQLite, Options{})

	// No attach artifacts: two steps remain, up pair then down pair.
	require.Len(t, artifacts, 4)
	for _, a := range artifacts {
		assert.NotContains(t, a.Filename, "attach_fks")
	}

	posts := artifacts[1].Content
	assert.Contains(t, posts, "user_id INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE")

	users := artifacts[0].Content
	assert.Contains(t, users, "id INTEGER PRIMARY KEY AUTOINCREMENT")
}

func TestRenderLaravel(t *testing.T) {
	artifacts, _ := renderBlog(t, "user_id", schema.DialectLaravel, Options{})

	require.Len(t, artifacts, 3)
	assert.Equal(t, "2024_01_01_000000_create_users.php", artifacts[0].Filename)
	assert.Equal(t, "2024_01_01_000002_attach_fks_posts.php", artifacts[2].Filename)

	users := artifacts[0].Content
	assert.Contains(t, users, "return new class extends Migration")
	assert.Contains(t, users, "Schema::create('users', function (Blueprint $table) {")
	assert.Contains(t, users, "$table->increments('id');")
	assert.Contains(t, users, "$table->string('email')->unique();")
	assert.Contains(t, users, "Schema::dropIfExists('users');")

	attach := artifacts[2].Content
	assert.Contains(t, attach,
		"$table->foreign('user_id')->references('id')->on('users')->onDelete('cascade');")
	assert.Contains(t, attach, "$table->dropForeign(['user_id']);")
	assert.NotContains(t, attach, "onUpdate", "restrict must stay implicit")
}

func TestRenderLaravelExplicitForeign(t *testing.T) {
	artifacts, _ := renderBlog(t, "author", schema.DialectLaravel, Options{})

	attach := artifacts[2].Content
	assert.Contains(t, attach, "$table->foreign('author', 'fk_posts_author_users_id')")
	assert.Contains(t, attach, "$table->dropForeign('fk_posts_author_users_id');")
}

func TestRenderConvenienceColumns(t *testing.T) {
	artifacts, _ := renderBlog(t, "user_id", schema.DialectPostgres, Options{Timestamps: true, SoftDeletes: true})

	users := artifacts[0].Content
	assert.Contains(t, users, "created_at TIMESTAMPTZ NOT NULL DEFAULT now()")
	assert.Contains(t, users, "updated_at TIMESTAMPTZ NOT NULL DEFAULT now()")
	assert.Contains(t, users, "deleted_at TIMESTAMPTZ")

	laravelArtifacts, _ := renderBlog(t, "user_id", schema.DialectLaravel, Options{Timestamps: true, SoftDeletes: true})
	assert.Contains(t, laravelArtifacts[0].Content, "$table->timestamps();")
	assert.Contains(t, laravelArtifacts[0].Content, "$table->softDeletes();")
}

func TestRenderPostgresEnumTypes(t *testing.T) {
	s := blogSchema("user_id")
	s.Tables[0].Fields = append(s.Tables[0].Fields, schema.Field{
		ID:   "f-state",
		Name: "state",
		Type: schema.Type{Kind: schema.KindEnum, EnumName: "status", EnumValues: []string{"active", "archived"}},
	})

	diags := &diag.Set{}
	edges, err := refgraph.Resolve(s, diags)
	require.NoError(t, err)
	plan := migrate.Order(s, edges, migrate.NewSequencer(testBase))
	artifacts, err := Render(plan, schema.DialectPostgres, Options{}, diags)
	require.NoError(t, err)

	users := artifacts[0].Content
	assert.Contains(t, users, "CREATE TYPE status AS ENUM ('active', 'archived');")
	assert.Contains(t, users, "state status NOT NULL")

	usersDown := artifacts[len(artifacts)-1].Content
	assert.Contains(t, usersDown, "DROP TABLE IF EXISTS users;")
	assert.Contains(t, usersDown, "DROP TYPE IF EXISTS status;")
}

func TestRenderSQLiteEnumCheck(t *testing.T) {
	s := &schema.Schema{
		Tables: []schema.Table{{
			ID:   "t-users",
			Name: "users",
			Fields: []schema.Field{
				{ID: "f-id", Name: "id", Type: schema.Type{Kind: schema.KindSerial}, PrimaryKey: true},
				{ID: "f-state", Name: "state", Type: schema.Type{Kind: schema.KindEnum, EnumValues: []string{"a", "b"}}},
			},
		}},
	}
	plan := migrate.Order(s, nil, migrate.NewSequencer(testBase))
	artifacts, err := Render(plan, schema.DialectSQLite, Options{}, &diag.Set{})
	require.NoError(t, err)

	assert.Contains(t, artifacts[0].Content, "CHECK (state IN ('a', 'b'))")
}

func TestRenderCompositePrimaryKey(t *testing.T) {
	s := &schema.Schema{
		Tables: []schema.Table{{
			ID:   "t-m",
			Name: "memberships",
			Fields: []schema.Field{
				{ID: "f-u", Name: "user_id", Type: schema.Type{Kind: schema.KindInt}, PrimaryKey: true},
				{ID: "f-t", Name: "team_id", Type: schema.Type{Kind: schema.KindInt}, PrimaryKey: true},
			},
		}},
	}
	plan := migrate.Order(s, nil, migrate.NewSequencer(testBase))

	artifacts, err := Render(plan, schema.DialectPostgres, Options{}, &diag.Set{})
	require.NoError(t, err)
	assert.Contains(t, artifacts[0].Content, "PRIMARY KEY (user_id, team_id)")
	assert.NotContains(t, artifacts[0].Content, "user_id INTEGER PRIMARY KEY")

	laravelArtifacts, err := Render(plan, schema.DialectLaravel, Options{}, &diag.Set{})
	require.NoError(t, err)
	assert.Contains(t, laravelArtifacts[0].Content, "$table->primary(['user_id', 'team_id']);")
}

func TestRenderUnsupportedTarget(t *testing.T) {
	plan := &migrate.Plan{}
	_, err := Render(plan, schema.Dialect("oracle"), Options{}, &diag.Set{})
	assert.Error(t, err)
}
