package sqlinline

const QInsertWorkflow = `--sql 74cd1583-c48b-4486-9879-569c1c635dfd
insert into workflows (id, owner_id, name, content_type, prompt_template, platforms, params, recurrence, timezone, active, created_at, updated_at)
values (gen_random_uuid(), $1::uuid, $2::text, $3::text, $4::text, $5::text[], $6::jsonb, $7::jsonb, $8::text, $9::boolean, now(), now())
returning id, created_at, updated_at;
`

const QSelectWorkflowByID = `--sql 481cd5b3-53e4-4f76-add8-9dd3623feaa2
select
    id,
    owner_id,
    name,
    content_type,
    prompt_template,
    platforms,
    params,
    recurrence,
    timezone,
    active,
    last_run_at,
    next_run_at,
    created_at,
    updated_at
from workflows
where id = $1::uuid
limit 1;
`

const QListWorkflowsByOwner = `--sql 4b847f42-c6cf-4c1f-9989-e2c7d37e9acc
select
    id,
    owner_id,
    name,
    content_type,
    prompt_template,
    platforms,
    params,
    recurrence,
    timezone,
    active,
    last_run_at,
    next_run_at,
    created_at,
    updated_at
from workflows
where owner_id = $1::uuid
order by created_at desc
limit $2;
`

const QListActiveWorkflows = `--sql 8f1fcef4-396b-4571-be20-5681c9f4837c
select
    id,
    owner_id,
    name,
    content_type,
    prompt_template,
    platforms,
    params,
    recurrence,
    timezone,
    active,
    last_run_at,
    next_run_at,
    created_at,
    updated_at
from workflows
where active
  and id::text > $1::text
order by id::text asc
limit $2;
`

const QUpdateWorkflowRecurrence = `--sql a44a5fb4-122a-45c9-b990-684ddf0a9e4e
update workflows
set recurrence = $2::jsonb,
    timezone = $3::text,
    updated_at = now()
where id = $1::uuid;
`

const QSetWorkflowActive = `--sql 0b562220-cf1c-4889-84e4-f855a67ddb14
update workflows
set active = $2::boolean,
    next_run_at = case when $2::boolean then next_run_at else null end,
    updated_at = now()
where id = $1::uuid;
`

const QDeleteWorkflow = `--sql 2af4e47a-855f-43ee-9455-07ba61a2ce54
delete from workflows
where id = $1::uuid;
`

const QMarkWorkflowRun = `--sql 38b99c8c-e2ec-4e77-b306-9f2dfaccc9f8
update workflows
set last_run_at = $2::timestamptz,
    updated_at = now()
where id = $1::uuid;
`

const QSetWorkflowNextRun = `--sql bd9b2ff7-02a3-48b6-b7e0-cc183b177a06
update workflows
set next_run_at = $2::timestamptz,
    updated_at = now()
where id = $1::uuid;
`
