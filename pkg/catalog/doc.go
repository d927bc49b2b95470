// Package catalog implements the relational catalog: Users, AuthTokens,
// Storages, Repositories, Projects, ProjectVersions and permissions.
// Every query is hand-written, parameterized SQL against database/sql
// (lib/pq) — of the two accepted styles, typed query builder or careful
// hand-SQL, this package commits to hand-SQL and does not mix in a builder.
//
// The concrete schema migrations are an external collaborator and are
// not part of this package; the SQL below assumes tables shaped as:
//
//	users(id serial pk, username unique, email unique, password_hash,
//	      admin, user_manager, storage_manager, repository_manager,
//	      default_repository_actions text[], created_at, updated_at)
//	auth_tokens(id serial pk, user_id fk, description, token_hash unique,
//	            token_prefix, active, expires_at, scopes text[], created_at,
//	            last_used_at)
//	auth_token_repository_scopes(token_id fk, repository_id fk, actions text[])
//	user_repository_permissions(user_id fk, repository_id fk, actions text[])
//	storages(id uuid pk, name unique citext, kind, config jsonb, active,
//	         created_at, updated_at)
//	repositories(id uuid pk, storage_id fk, name, type, sub_type, active,
//	             visibility, created_at, updated_at,
//	             unique(storage_id, name))
//	repository_configs(repository_id fk, key, value jsonb, updated_at,
//	                    primary key(repository_id, key))
//	projects(id uuid pk, repository_id fk, key, scope, display_name,
//	         description, storage_path, deprecated, created_at, updated_at,
//	         unique(repository_id, key))
//	project_versions(id uuid pk, project_id fk, version, release_type,
//	                  storage_path, publisher_user_id, extra jsonb,
//	                  created_at, updated_at, unique(project_id, version))
//	project_members(project_id fk, user_id fk, can_write, can_manage,
//	                 primary key(project_id, user_id))
package catalog
